package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("запись не найдена")
	ErrUserNotFound    = errors.New("пользователь не найден")
	ErrVersionConflict = errors.New("конфликт версий")
)

const (
	RefCreator  = "creator_id"
	RefAssignee = "assignee_id"
	RefEditor   = "last_edited_by"
	RefAuditor  = "user_id"
)

// UserRefError - запись ссылается на пользователя, которого нет в каталоге.
// errors.Is(err, ErrUserNotFound) для неё истинно
type UserRefError struct {
	Field  string
	UserID uuid.UUID
}

func (e *UserRefError) Error() string {
	if e.UserID == uuid.Nil {
		return fmt.Sprintf("%s: %s", e.Field, ErrUserNotFound)
	}
	return fmt.Sprintf("%s %s: %s", e.Field, e.UserID, ErrUserNotFound)
}

func (e *UserRefError) Is(target error) bool {
	return target == ErrUserNotFound
}

func NewUserRefError(field string, userID uuid.UUID) *UserRefError {
	return &UserRefError{Field: field, UserID: userID}
}
