package task

import (
	"time"

	"github.com/google/uuid"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithStatus(status Status) TaskOption {
	return func(task *Task) {
		task.Status = status
	}
}

func WithPriority(priority Priority) TaskOption {
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDueDate(dueDate time.Time) TaskOption {
	return func(task *Task) {
		task.DueDate = dueDate
	}
}

func WithAssignee(assigneeID uuid.UUID) TaskOption {
	return func(task *Task) {
		task.AssigneeID = assigneeID
	}
}

func WithEditor(editorID uuid.UUID) TaskOption {
	return func(task *Task) {
		task.LastEditedBy = &editorID
	}
}

// Patch - частичное обновление, только перечисленные поля можно менять
type Patch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *Priority
	Status      *Status
	AssigneeID  *uuid.UUID
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Priority == nil && p.Status == nil && p.AssigneeID == nil
}

func (p Patch) Options() []TaskOption {
	opts := make([]TaskOption, 0, 6)
	if p.Title != nil {
		opts = append(opts, WithTitle(*p.Title))
	}
	if p.Description != nil {
		opts = append(opts, WithDescription(*p.Description))
	}
	if p.DueDate != nil {
		opts = append(opts, WithDueDate(*p.DueDate))
	}
	if p.Priority != nil {
		opts = append(opts, WithPriority(*p.Priority))
	}
	if p.Status != nil {
		opts = append(opts, WithStatus(*p.Status))
	}
	if p.AssigneeID != nil {
		opts = append(opts, WithAssignee(*p.AssigneeID))
	}
	return opts
}

func (p Patch) Apply(t *Task) {
	for _, opt := range p.Options() {
		opt(t)
	}
}

// ChangesStatus - в патче есть статус и он отличается от текущего
func (p Patch) ChangesStatus(current Status) bool {
	return p.Status != nil && *p.Status != current
}

func (p Patch) ChangesAssignee(current uuid.UUID) bool {
	return p.AssigneeID != nil && *p.AssigneeID != current
}
