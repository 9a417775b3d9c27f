package postgres

import (
	"context"
	"fmt"
	"time"

	"taskHub/internal/logger"
	"taskHub/internal/models/audit"
	"taskHub/internal/models/task"
	"taskHub/internal/models/user"
	repo "taskHub/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type AuditStorage struct {
	pool *pgxpool.Pool
}

func (s *AuditStorage) Append(ctx context.Context, entry *audit.Entry) error {
	start := time.Now()
	defer warnIfSlow("audit_append", start)

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Action == "" {
		entry.Action = audit.ActionStatusUpdate
	}

	query := `WITH l AS (
				INSERT INTO audit_logs
				(id, task_id, user_id, action, previous_status, new_status, timestamp)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING user_id
			)
			SELECT u.name, u.email, u.avatar
			FROM l JOIN users u ON u.id = l.user_id`

	actor := &user.Profile{ID: entry.UserID}
	err := s.pool.QueryRow(ctx, query,
		entry.ID,
		entry.TaskID,
		entry.UserID,
		entry.Action,
		string(entry.PreviousStatus),
		string(entry.NewStatus),
		entry.Timestamp,
	).Scan(&actor.Name, &actor.Email, &actor.Avatar)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repo.NewUserRefError(repo.RefAuditor, entry.UserID)
		}
		logger.Error("Repository: Не удалось записать журнал аудита", err,
			zap.String("task_id", entry.TaskID.String()),
			zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("запись журнала аудита: %w", err)
	}

	entry.User = actor
	return nil
}

// ListByTask - от новых записей к старым, с профилем автора
func (s *AuditStorage) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*audit.Entry, error) {
	start := time.Now()
	defer warnIfSlow("audit_list", start)

	query := `SELECT
				l.id,
				l.task_id,
				l.user_id,
				l.action,
				l.previous_status,
				l.new_status,
				l.timestamp,
				u.name, u.email, u.avatar
			FROM audit_logs l
			JOIN users u ON u.id = l.user_id
			WHERE l.task_id = $1
			ORDER BY l.timestamp DESC`

	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить журнал аудита", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение журнала аудита: %w", err)
	}
	defer rows.Close()

	entries := []*audit.Entry{}
	for rows.Next() {
		var (
			e          audit.Entry
			actor      user.Profile
			prevStatus string
			newStatus  string
		)
		err := rows.Scan(
			&e.ID,
			&e.TaskID,
			&e.UserID,
			&e.Action,
			&prevStatus,
			&newStatus,
			&e.Timestamp,
			&actor.Name, &actor.Email, &actor.Avatar,
		)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования записи аудита", err)
			return nil, fmt.Errorf("сканирование записи аудита: %w", err)
		}
		e.PreviousStatus = task.Status(prevStatus)
		e.NewStatus = task.Status(newStatus)
		actor.ID = e.UserID
		e.User = &actor
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return entries, nil
}
