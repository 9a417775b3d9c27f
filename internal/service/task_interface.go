package service

import (
	"context"
	"time"

	"taskHub/internal/models/audit"
	"taskHub/internal/models/task"
	"taskHub/internal/models/user"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	FindAll(context.Context, task.Filter) ([]*task.Task, error)
	FindByAssignee(context.Context, uuid.UUID) ([]*task.Task, error)
	FindByCreator(context.Context, uuid.UUID) ([]*task.Task, error)
	FindOverdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*task.Task, error)
	FindDueBetween(ctx context.Context, from, to time.Time, limit int) ([]*task.Task, error)
	Update(context.Context, *task.Task) error
	Delete(context.Context, uuid.UUID) (*task.Task, error)
}

type AuditRepository interface {
	Append(context.Context, *audit.Entry) error
	ListByTask(context.Context, uuid.UUID) ([]*audit.Entry, error)
}

type UserRepository interface {
	List(context.Context) ([]*user.Profile, error)
	GetByID(context.Context, uuid.UUID) (*user.Profile, error)
}

// Notifier - транспорт уведомлений. Доставка best-effort, поэтому без ошибок
type Notifier interface {
	Notify(userID string, event string, payload any)
	Broadcast(event string, payload any)
}

// DashboardInvalidator сбрасывает сохранённые дашборды пользователей после изменения задач
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

// DashboardCache - необязательный кэш дашбордов, ошибки кэша не ломают запрос.
// Invalidate увеличивает поколение пользователя. Set пишет дашборд, только если
// поколение не изменилось с начала сборки, иначе возвращает false
type DashboardCache interface {
	DashboardInvalidator
	Get(ctx context.Context, userID uuid.UUID) (*task.Dashboard, bool, error)
	Generation(ctx context.Context, userID uuid.UUID) (int64, error)
	Set(ctx context.Context, userID uuid.UUID, generation int64, dashboard *task.Dashboard) (bool, error)
}

const (
	EventNotification = "notification"
	EventTasksChanged = "tasks_changed"
)

// NotificationPayload - тело события notification
type NotificationPayload struct {
	Message string     `json:"message"`
	TaskID  *uuid.UUID `json:"taskId,omitempty"`
}
