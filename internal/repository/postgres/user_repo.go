package postgres

import (
	"context"
	"errors"
	"fmt"

	"taskHub/internal/logger"
	"taskHub/internal/models/user"
	repo "taskHub/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStorage - только чтение каталога, учётные записи заводит внешний сервис
type UserStorage struct {
	pool *pgxpool.Pool
}

func (s *UserStorage) List(ctx context.Context) ([]*user.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email, avatar FROM users ORDER BY name`)
	if err != nil {
		logger.Error("Repository: Не удалось получить пользователей", err)
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[user.Profile])
	if err != nil {
		logger.Error("Repository: Ошибка сканирования пользователей", err)
		return nil, fmt.Errorf("сканирование пользователей: %w", err)
	}
	return users, nil
}

func (s *UserStorage) GetByID(ctx context.Context, id uuid.UUID) (*user.Profile, error) {
	p := &user.Profile{}
	err := s.pool.QueryRow(ctx, `SELECT id, name, email, avatar FROM users WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Email, &p.Avatar)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrUserNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return p, nil
}

// Upsert используется для загрузки пользователей из конфигурации.
// Запись с id обновляется по id, без id - по email, так повторный старт не плодит дубликаты
func (s *UserStorage) Upsert(ctx context.Context, profile user.Profile) (*user.Profile, error) {
	query := `INSERT INTO users (id, name, email, avatar)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name,
					email = EXCLUDED.email,
					avatar = EXCLUDED.avatar
			RETURNING id`

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
		query = `INSERT INTO users (id, name, email, avatar)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO UPDATE
				SET name = EXCLUDED.name,
					avatar = EXCLUDED.avatar
			RETURNING id`
	}

	err := s.pool.QueryRow(ctx, query, profile.ID, profile.Name, profile.Email, profile.Avatar).Scan(&profile.ID)
	if err != nil {
		logger.Error("Repository: Не удалось сохранить пользователя", err)
		return nil, fmt.Errorf("сохранение пользователя: %w", err)
	}
	return &profile, nil
}
