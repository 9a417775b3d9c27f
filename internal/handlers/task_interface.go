package handlers

import (
	"context"

	"taskHub/internal/models/audit"
	"taskHub/internal/models/task"
	"taskHub/internal/models/user"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(context.Context) error
	CreateTask(context.Context, *task.Task) (*task.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, patch task.Patch, actingUserID uuid.UUID) (*task.Task, error)
	DeleteTask(context.Context, uuid.UUID) (*task.Task, error)
	GetAllTasks(context.Context, task.Filter) ([]*task.Task, error)
	GetTaskByID(context.Context, uuid.UUID) (*task.Task, error)
	GetTaskLogs(context.Context, uuid.UUID) ([]*audit.Entry, error)
}

type DashboardService interface {
	GetDashboardData(context.Context, uuid.UUID) (*task.Dashboard, error)
}

type UserService interface {
	ListUsers(context.Context) ([]*user.Profile, error)
	GetUser(context.Context, uuid.UUID) (*user.Profile, error)
}

// ClientCounter - число живых каналов уведомлений для /health
type ClientCounter interface {
	ClientCount() int
}
