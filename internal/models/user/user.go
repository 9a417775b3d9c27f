package user

import "github.com/google/uuid"

// Profile - безопасная проекция пользователя: без пароля и прочих секретов
type Profile struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Name   string    `json:"name" db:"name"`
	Email  string    `json:"email" db:"email"`
	Avatar string    `json:"avatar" db:"avatar"`
}
