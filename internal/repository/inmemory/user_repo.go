package inmemory

import (
	"context"
	"sort"
	"sync"

	"taskHub/internal/models/user"
	repo "taskHub/internal/repository"

	"github.com/google/uuid"
)

type UserStorage struct {
	storage map[uuid.UUID]*user.Profile
	mtx     *sync.RWMutex
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		storage: make(map[uuid.UUID]*user.Profile),
		mtx:     &sync.RWMutex{},
	}
}

// AddUser заводит пользователя, в inmemory режиме так загружаются пользователи из конфига
func (s *UserStorage) AddUser(profile user.Profile) *user.Profile {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	s.storage[profile.ID] = &profile
	p := profile
	return &p
}

func (s *UserStorage) List(ctx context.Context) ([]*user.Profile, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*user.Profile, 0, len(s.storage))
	for _, p := range s.storage {
		c := *p
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (s *UserStorage) GetByID(ctx context.Context, id uuid.UUID) (*user.Profile, error) {
	p, ok := s.lookup(id)
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return p, nil
}

func (s *UserStorage) lookup(id uuid.UUID) (*user.Profile, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	p, ok := s.storage[id]
	if !ok {
		return nil, false
	}
	c := *p
	return &c, true
}
