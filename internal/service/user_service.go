package service

import (
	"context"
	"errors"

	"taskHub/internal/models/user"
	repo "taskHub/internal/repository"

	"github.com/google/uuid"
)

// UserService - каталог пользователей для выбора исполнителя
type UserService struct {
	repo UserRepository
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{repo: users}
}

func (s *UserService) ListUsers(ctx context.Context) ([]*user.Profile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, NewStorageError("list_users", err)
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*user.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, NewNotFound(ResourceUser, id.String())
		}
		return nil, NewStorageError("get_user", err)
	}
	return p, nil
}
