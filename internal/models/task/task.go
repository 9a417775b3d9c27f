package task

import (
	"time"

	"taskHub/internal/models/user"

	"github.com/google/uuid"
)

type Task struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	Title        string        `json:"title" db:"title"`
	Description  string        `json:"description" db:"description"`
	DueDate      time.Time     `json:"due_date" db:"due_date"`
	Priority     Priority      `json:"priority" db:"priority"`
	Status       Status        `json:"status" db:"status"`
	CreatorID    uuid.UUID     `json:"creator_id" db:"creator_id"`
	AssigneeID   uuid.UUID     `json:"assignee_id" db:"assignee_id"`
	LastEditedBy *uuid.UUID    `json:"last_edited_by,omitempty" db:"last_edited_by"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty" db:"updated_at"`
	Version      int           `json:"version" db:"version"`
	Creator      *user.Profile `json:"creator,omitempty" db:"-"`
	Assignee     *user.Profile `json:"assignee,omitempty" db:"-"`
}

type Status string
type Priority string

const MaxTitleLength = 100

const StatusToDo Status = "To Do"
const StatusInProgress Status = "In Progress"
const StatusReview Status = "Review"
const StatusCompleted Status = "Completed"

const PriorityLow Priority = "Low"
const PriorityMedium Priority = "Medium"
const PriorityHigh Priority = "High"
const PriorityUrgent Priority = "Urgent"

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IsOverdue повторяет предикат просрочки хранилища
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != StatusCompleted && t.DueDate.Before(now)
}

// Clone нужен, чтобы движок не менял запись, которую вернуло хранилище
func (t *Task) Clone() *Task {
	c := *t
	if t.LastEditedBy != nil {
		id := *t.LastEditedBy
		c.LastEditedBy = &id
	}
	if t.UpdatedAt != nil {
		ts := *t.UpdatedAt
		c.UpdatedAt = &ts
	}
	return &c
}

// Filter - фильтр выборки, nil поле не ограничивает результат
type Filter struct {
	Status   *Status
	Priority *Priority
}

func (f Filter) Match(t *Task) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	return true
}

// Dashboard - три выборки по предикатам, пересечения допустимы
type Dashboard struct {
	Assigned []*Task `json:"assigned"`
	Created  []*Task `json:"created"`
	Overdue  []*Task `json:"overdue"`
}
