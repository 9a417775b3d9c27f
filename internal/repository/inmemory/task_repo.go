package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskHub/internal/logger"
	"taskHub/internal/models/task"
	repo "taskHub/internal/repository"

	"github.com/google/uuid"
)

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
	users   *UserStorage
	now     func() time.Time
}

func NewTaskStorage(users *UserStorage) *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
		users:   users,
		now:     time.Now,
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	if err := s.checkUsers(
		userRef{repo.RefCreator, taskToCreate.CreatorID},
		userRef{repo.RefAssignee, taskToCreate.AssigneeID},
	); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}
	taskToCreate.CreatedAt = s.now()
	taskToCreate.UpdatedAt = nil
	taskToCreate.Version = 1

	s.storage[taskToCreate.ID] = stripped(taskToCreate)
	s.ids = append(s.ids, taskToCreate.ID)

	s.resolve(taskToCreate)
	return nil
}

// Update перезаписывает изменяемые поля, если версия в хранилище совпадает с версией задачи
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	refs := []userRef{{repo.RefAssignee, taskToUpdate.AssigneeID}}
	if taskToUpdate.LastEditedBy != nil {
		refs = append(refs, userRef{repo.RefEditor, *taskToUpdate.LastEditedBy})
	}
	if err := s.checkUsers(refs...); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToUpdate.Version {
		return repo.ErrVersionConflict
	}

	now := s.now()
	taskToUpdate.UpdatedAt = &now
	taskToUpdate.Version++
	taskToUpdate.CreatorID = existed.CreatorID
	taskToUpdate.CreatedAt = existed.CreatedAt

	s.storage[taskToUpdate.ID] = stripped(taskToUpdate)
	s.resolve(taskToUpdate)
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return s.resolved(taskToGet), nil
}

func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	deleted, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}

	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
	return s.resolved(deleted), nil
}

// сортировка по сроку, при равенстве сохраняется порядок добавления
func (s *TaskStorage) FindAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	tasks := s.collect(filter.Match)
	sortByDueDate(tasks)
	return tasks, nil
}

func (s *TaskStorage) FindByAssignee(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	tasks := s.collect(func(t *task.Task) bool {
		return t.AssigneeID == userID
	})
	sortByDueDate(tasks)
	return tasks, nil
}

// новые задачи первыми
func (s *TaskStorage) FindByCreator(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	tasks := s.collect(func(t *task.Task) bool {
		return t.CreatorID == userID
	})
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *TaskStorage) FindOverdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*task.Task, error) {
	tasks := s.collect(func(t *task.Task) bool {
		return t.AssigneeID == userID && t.IsOverdue(now)
	})
	sortByDueDate(tasks)
	return tasks, nil
}

// FindDueBetween - незавершённые задачи со сроком в [from, to)
func (s *TaskStorage) FindDueBetween(ctx context.Context, from, to time.Time, limit int) ([]*task.Task, error) {
	tasks := s.collect(func(t *task.Task) bool {
		return t.Status != task.StatusCompleted && !t.DueDate.Before(from) && t.DueDate.Before(to)
	})
	sortByDueDate(tasks)
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (s *TaskStorage) collect(match func(*task.Task) bool) []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if !match(t) {
			continue
		}
		res = append(res, s.resolved(t))
	}
	return res
}

type userRef struct {
	field string
	id    uuid.UUID
}

// проверка ссылок на пользователей, как внешние ключи в postgres
func (s *TaskStorage) checkUsers(refs ...userRef) error {
	for _, ref := range refs {
		if _, ok := s.users.lookup(ref.id); !ok {
			return repo.NewUserRefError(ref.field, ref.id)
		}
	}
	return nil
}

func (s *TaskStorage) resolved(t *task.Task) *task.Task {
	c := t.Clone()
	s.resolve(c)
	return c
}

func (s *TaskStorage) resolve(t *task.Task) {
	t.Creator, _ = s.users.lookup(t.CreatorID)
	t.Assignee, _ = s.users.lookup(t.AssigneeID)
}

// в хранилище лежит копия без профилей, профили подставляются при чтении
func stripped(t *task.Task) *task.Task {
	c := t.Clone()
	c.Creator = nil
	c.Assignee = nil
	return c
}

func sortByDueDate(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
}
