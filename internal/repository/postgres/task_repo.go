package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskHub/internal/logger"
	"taskHub/internal/models/task"
	"taskHub/internal/models/user"
	repo "taskHub/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const foreignKeyViolation = "23503"

// t - таблица tasks или CTE с тем же набором колонок
const taskSelect = `SELECT
				t.id,
				t.title,
				t.description,
				t.due_date,
				t.priority,
				t.status,
				t.creator_id,
				t.assignee_id,
				t.last_edited_by,
				t.created_at,
				t.updated_at,
				t.version,
				c.name, c.email, c.avatar,
				a.name, a.email, a.avatar`

const taskJoins = `
			JOIN users c ON c.id = t.creator_id
			JOIN users a ON a.id = t.assignee_id`

type TaskStorage struct {
	pool *pgxpool.Pool
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("create", start)

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}

	query := `WITH t AS (
				INSERT INTO tasks
				(id, title, description, due_date, priority, status, creator_id, assignee_id, created_at, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), 1)
				RETURNING *
			)
			` + taskSelect + ` FROM t` + taskJoins

	created, err := scanTask(s.pool.QueryRow(ctx, query,
		taskToCreate.ID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.DueDate,
		string(taskToCreate.Priority),
		string(taskToCreate.Status),
		taskToCreate.CreatorID,
		taskToCreate.AssigneeID,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return userRefError(err, taskToCreate)
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	*taskToCreate = *created
	return nil
}

// Update пишет изменяемые поля при совпадении версии, версия увеличивается на единицу
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("update", start)

	query := `WITH t AS (
				UPDATE tasks
				SET title = $1,
					description = $2,
					due_date = $3,
					priority = $4,
					status = $5,
					assignee_id = $6,
					last_edited_by = $7,
					updated_at = NOW(),
					version = version + 1
				WHERE id = $8 AND version = $9
				RETURNING *
			)
			` + taskSelect + ` FROM t` + taskJoins

	updated, err := scanTask(s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.DueDate,
		string(taskToUpdate.Priority),
		string(taskToUpdate.Status),
		taskToUpdate.AssigneeID,
		taskToUpdate.LastEditedBy,
		taskToUpdate.ID,
		taskToUpdate.Version,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missingOrConflict(ctx, taskToUpdate)
		}
		if isForeignKeyViolation(err) {
			return userRefError(err, taskToUpdate)
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}

	*taskToUpdate = *updated
	return nil
}

func (s *TaskStorage) missingOrConflict(ctx context.Context, t *task.Task) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, t.ID).Scan(&exists)
	if err != nil {
		logger.Error("Repository: Не удалось проверить наличие задачи", err)
		return fmt.Errorf("проверка наличия задачи: %w", err)
	}
	if !exists {
		return repo.ErrNotFound
	}

	logger.Warn("Repository: Конфликт версий при обновлении задачи",
		zap.String("task_id", t.ID.String()),
		zap.Int("expected_version", t.Version))
	return repo.ErrVersionConflict
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("get_by_id", start)

	query := taskSelect + `
			FROM tasks t` + taskJoins + `
			WHERE t.id = $1`

	found, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return found, nil
}

// Delete удаляет задачу и возвращает удалённую запись, журнал аудита не трогается
func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("delete", start)

	query := `WITH t AS (
				DELETE FROM tasks
				WHERE id = $1
				RETURNING *
			)
			` + taskSelect + ` FROM t` + taskJoins

	deleted, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("удаление задачи: %w", err)
	}
	return deleted, nil
}

func (s *TaskStorage) FindAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	var status, priority any
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	if filter.Priority != nil {
		priority = string(*filter.Priority)
	}

	query := taskSelect + `
			FROM tasks t` + taskJoins + `
			WHERE ($1::text IS NULL OR t.status = $1)
				AND ($2::text IS NULL OR t.priority = $2)
			ORDER BY t.due_date ASC, t.created_at ASC`

	return s.queryTasks(ctx, "find_all", query, status, priority)
}

func (s *TaskStorage) FindByAssignee(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	query := taskSelect + `
			FROM tasks t` + taskJoins + `
			WHERE t.assignee_id = $1
			ORDER BY t.due_date ASC, t.created_at ASC`

	return s.queryTasks(ctx, "find_by_assignee", query, userID)
}

func (s *TaskStorage) FindByCreator(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	query := taskSelect + `
			FROM tasks t` + taskJoins + `
			WHERE t.creator_id = $1
			ORDER BY t.created_at DESC`

	return s.queryTasks(ctx, "find_by_creator", query, userID)
}

func (s *TaskStorage) FindOverdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*task.Task, error) {
	query := taskSelect + `
			FROM tasks t` + taskJoins + `
			WHERE t.assignee_id = $1
				AND t.due_date < $2
				AND t.status <> $3
			ORDER BY t.due_date ASC`

	return s.queryTasks(ctx, "find_overdue", query, userID, now, string(task.StatusCompleted))
}

func (s *TaskStorage) FindDueBetween(ctx context.Context, from, to time.Time, limit int) ([]*task.Task, error) {
	query := taskSelect + `
			FROM tasks t` + taskJoins + `
			WHERE t.due_date >= $1
				AND t.due_date < $2
				AND t.status <> $3
			ORDER BY t.due_date ASC
			LIMIT $4`

	if limit <= 0 {
		limit = 1000
	}
	return s.queryTasks(ctx, "find_due_between", query, from, to, string(task.StatusCompleted), limit)
}

func (s *TaskStorage) queryTasks(ctx context.Context, op string, query string, args ...any) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(op, start)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.String("op", op), zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t        task.Task
		priority string
		status   string
		creator  user.Profile
		assignee user.Profile
	)

	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&priority,
		&status,
		&t.CreatorID,
		&t.AssigneeID,
		&t.LastEditedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
		&creator.Name, &creator.Email, &creator.Avatar,
		&assignee.Name, &assignee.Email, &assignee.Avatar,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = task.Priority(priority)
	t.Status = task.Status(status)
	creator.ID = t.CreatorID
	assignee.ID = t.AssigneeID
	t.Creator = &creator
	t.Assignee = &assignee
	return &t, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// userRefError по имени нарушенного внешнего ключа называет ссылку, которая не нашлась
func userRefError(err error, t *task.Task) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return repo.ErrUserNotFound
	}

	switch pgErr.ConstraintName {
	case "tasks_creator_id_fkey":
		return repo.NewUserRefError(repo.RefCreator, t.CreatorID)
	case "tasks_assignee_id_fkey":
		return repo.NewUserRefError(repo.RefAssignee, t.AssigneeID)
	case "tasks_last_edited_by_fkey":
		var editor uuid.UUID
		if t.LastEditedBy != nil {
			editor = *t.LastEditedBy
		}
		return repo.NewUserRefError(repo.RefEditor, editor)
	default:
		return repo.ErrUserNotFound
	}
}
