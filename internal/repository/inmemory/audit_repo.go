package inmemory

import (
	"context"
	"sync"

	"taskHub/internal/models/audit"
	repo "taskHub/internal/repository"

	"github.com/google/uuid"
)

// AuditStorage - журнал только на добавление, записи переживают удаление задачи
type AuditStorage struct {
	entries []*audit.Entry
	mtx     *sync.RWMutex
	users   *UserStorage
}

func NewAuditStorage(users *UserStorage) *AuditStorage {
	return &AuditStorage{
		entries: []*audit.Entry{},
		mtx:     &sync.RWMutex{},
		users:   users,
	}
}

func (s *AuditStorage) Append(ctx context.Context, entry *audit.Entry) error {
	if _, ok := s.users.lookup(entry.UserID); !ok {
		return repo.NewUserRefError(repo.RefAuditor, entry.UserID)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Action == "" {
		entry.Action = audit.ActionStatusUpdate
	}

	c := *entry
	c.User = nil
	s.entries = append(s.entries, &c)

	entry.User, _ = s.users.lookup(entry.UserID)
	return nil
}

// ListByTask отдаёт записи от новых к старым
func (s *AuditStorage) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*audit.Entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*audit.Entry{}
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.TaskID != taskID {
			continue
		}
		c := *e
		c.User, _ = s.users.lookup(e.UserID)
		res = append(res, &c)
	}
	return res, nil
}
