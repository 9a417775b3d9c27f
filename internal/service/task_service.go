package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"taskHub/internal/logger"
	"taskHub/internal/models/audit"
	"taskHub/internal/models/task"
	repo "taskHub/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики и рассылка событий

type TaskService struct {
	repo        TaskRepository
	audit       *AuditRecorder
	notifier    Notifier
	invalidator DashboardInvalidator
	locks       *keyedMutex
}

func NewTaskService(tasks TaskRepository, recorder *AuditRecorder, notifier Notifier, opts ...Option) *TaskService {
	o := buildOptions(opts)
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TaskService{
		repo:        tasks,
		audit:       recorder,
		notifier:    notifier,
		invalidator: o.invalidator(),
		locks:       newKeyedMutex(),
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// CreateTask сохраняет задачу, уведомляет исполнителя и рассылает сигнал об изменении списка
func (s *TaskService) CreateTask(ctx context.Context, newTask *task.Task) (*task.Task, error) {
	if newTask.Status == "" {
		newTask.Status = task.StatusToDo
	}
	if newTask.Priority == "" {
		newTask.Priority = task.PriorityMedium
	}
	if err := validateTask(newTask); err != nil {
		return nil, err
	}

	err := s.repo.Create(ctx, newTask)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			logger.Info("Service: Пользователь задачи не найден",
				zap.String("creator_id", newTask.CreatorID.String()),
				zap.String("assignee_id", newTask.AssigneeID.String()),
				zap.Error(err))
			return nil, missingUser(err, newTask.AssigneeID)
		}
		return nil, NewStorageError("create", err)
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", newTask.ID.String()),
		zap.String("assignee_id", newTask.AssigneeID.String()))

	s.invalidate(ctx, newTask.CreatorID, newTask.AssigneeID)
	s.sendNotification(newTask.AssigneeID, fmt.Sprintf("Вам назначена новая задача: %s", newTask.Title), newTask.ID)
	s.notifier.Broadcast(EventTasksChanged, nil)

	return newTask, nil
}

// UpdateTask применяет частичное обновление от имени actingUserID.
// Запись аудита появляется только при реальной смене статуса
func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, patch task.Patch, actingUserID uuid.UUID) (*task.Task, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTaskError("update", id, err)
	}

	previousStatus := current.Status
	previousAssignee := current.AssigneeID

	updated := current.Clone()
	patch.Apply(updated)
	task.WithEditor(actingUserID)(updated)

	if err := s.repo.Update(ctx, updated); err != nil {
		// неизвестный редактор отсекается здесь, до записи аудита
		if errors.Is(err, repo.ErrUserNotFound) {
			logger.Info("Service: Пользователь задачи не найден",
				zap.String("task_id", id.String()),
				zap.String("editor_id", actingUserID.String()),
				zap.Error(err))
			return nil, missingUser(err, updated.AssigneeID)
		}
		return nil, s.mapTaskError("update", id, err)
	}

	var auditErr error
	if patch.ChangesStatus(previousStatus) {
		_, err := s.audit.Record(ctx, id, actingUserID, previousStatus, *patch.Status)
		if err != nil {
			auditErr = NewStorageError("audit", err)
		}
	}

	// задача уже изменена, поэтому клиенты получают сигнал и при ошибке аудита
	s.invalidate(ctx, updated.CreatorID, previousAssignee, updated.AssigneeID)
	s.notifier.Broadcast(EventTasksChanged, nil)

	if auditErr != nil {
		return nil, auditErr
	}

	if patch.ChangesAssignee(previousAssignee) {
		s.sendNotification(updated.AssigneeID, fmt.Sprintf("Задача переназначена на вас: %s", updated.Title), id)
	}

	logger.Info("Service: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.String("editor_id", actingUserID.String()),
		zap.Int("version", updated.Version))

	return updated, nil
}

// DeleteTask возвращает (nil, nil), если удалять было нечего
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Service: Задача для удаления не найдена", zap.String("target_id", id.String()))
			return nil, nil
		}
		return nil, NewStorageError("delete", err)
	}

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))

	s.invalidate(ctx, deleted.CreatorID, deleted.AssigneeID)
	s.notifier.Broadcast(EventTasksChanged, nil)
	return deleted, nil
}

func (s *TaskService) GetAllTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, NewValidationError("status", "неизвестный статус")
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, NewValidationError("priority", "неизвестный приоритет")
	}

	tasks, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, NewStorageError("find_all", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTaskError("get", id, err)
	}
	return found, nil
}

// GetTaskLogs отдаёт историю статусов, в том числе для уже удалённой задачи
func (s *TaskService) GetTaskLogs(ctx context.Context, id uuid.UUID) ([]*audit.Entry, error) {
	return s.audit.GetLogs(ctx, id)
}

func (s *TaskService) mapTaskError(op string, id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		return NewNotFound(ResourceTask, id.String())
	case errors.Is(err, repo.ErrVersionConflict):
		logger.Warn("Service: Конфликт версий", zap.String("task_id", id.String()))
		return NewVersionConflict(id.String())
	default:
		return NewStorageError(op, err)
	}
}

func (s *TaskService) sendNotification(userID uuid.UUID, message string, taskID uuid.UUID) {
	id := taskID
	s.notifier.Notify(userID.String(), EventNotification, NotificationPayload{
		Message: message,
		TaskID:  &id,
	})
}

// ошибки кэша только логируются, запись в хранилище уже прошла
func (s *TaskService) invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, userIDs...); err != nil {
		logger.Warn("Service: Не удалось сбросить кэш дашбордов", zap.Error(err))
	}
}

func validateTask(t *task.Task) error {
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	if t.Description == "" {
		return NewValidationError("description", "описание не может быть пустым")
	}
	if t.DueDate.IsZero() {
		return NewValidationError("due_date", "срок обязателен")
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "неизвестный статус")
	}
	if !t.Priority.Valid() {
		return NewValidationError("priority", "неизвестный приоритет")
	}
	if t.CreatorID == uuid.Nil {
		return NewValidationError("creator_id", "не указан автор")
	}
	if t.AssigneeID == uuid.Nil {
		return NewValidationError("assignee_id", "не указан исполнитель")
	}
	return nil
}

func validatePatch(p task.Patch) error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil && *p.Description == "" {
		return NewValidationError("description", "описание не может быть пустым")
	}
	if p.DueDate != nil && p.DueDate.IsZero() {
		return NewValidationError("due_date", "срок обязателен")
	}
	if p.Status != nil && !p.Status.Valid() {
		return NewValidationError("status", "неизвестный статус")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return NewValidationError("priority", "неизвестный приоритет")
	}
	if p.AssigneeID != nil && *p.AssigneeID == uuid.Nil {
		return NewValidationError("assignee_id", "не указан исполнитель")
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return NewValidationError("title", "название не может быть пустым")
	}
	if utf8.RuneCountInString(title) > task.MaxTitleLength {
		return NewValidationError("title", fmt.Sprintf("название длиннее %d символов", task.MaxTitleLength))
	}
	return nil
}

// missingUser называет пользователя, ссылка на которого не нашлась
func missingUser(err error, fallback uuid.UUID) *BusinessError {
	var ref *repo.UserRefError
	if errors.As(err, &ref) && ref.UserID != uuid.Nil {
		busErr := NewNotFound(ResourceUser, ref.UserID.String())
		busErr.Details["field"] = ref.Field
		return busErr
	}
	return NewNotFound(ResourceUser, fallback.String())
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, any) {}
func (nopNotifier) Broadcast(string, any)      {}
