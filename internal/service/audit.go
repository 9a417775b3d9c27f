package service

import (
	"context"
	"fmt"
	"time"

	"taskHub/internal/logger"
	"taskHub/internal/models/audit"
	"taskHub/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditRecorder пишет неизменяемые записи о смене статуса
type AuditRecorder struct {
	repo AuditRepository
	now  func() time.Time
}

func NewAuditRecorder(repo AuditRepository, opts ...Option) *AuditRecorder {
	o := buildOptions(opts)
	return &AuditRecorder{
		repo: repo,
		now:  o.now,
	}
}

// Record никогда не глотает ошибку хранилища, её обрабатывает вызывающий
func (r *AuditRecorder) Record(ctx context.Context, taskID, userID uuid.UUID, prev, next task.Status) (*audit.Entry, error) {
	entry := &audit.Entry{
		TaskID:         taskID,
		UserID:         userID,
		Action:         audit.ActionStatusChange,
		PreviousStatus: prev,
		NewStatus:      next,
		Timestamp:      r.now(),
	}

	if err := r.repo.Append(ctx, entry); err != nil {
		logger.Error("Service: Не удалось записать смену статуса", err,
			zap.String("task_id", taskID.String()),
			zap.String("previous_status", string(prev)),
			zap.String("new_status", string(next)))
		return nil, fmt.Errorf("запись аудита: %w", err)
	}
	return entry, nil
}

func (r *AuditRecorder) GetLogs(ctx context.Context, taskID uuid.UUID) ([]*audit.Entry, error) {
	entries, err := r.repo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, NewStorageError("get_logs", err)
	}
	return entries, nil
}
