package dto

import (
	"fmt"
	"time"
	"unicode/utf8"

	"taskHub/internal/models/audit"
	"taskHub/internal/models/task"
	"taskHub/internal/models/user"
	"taskHub/internal/service"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DueDate     *time.Time     `json:"due_date"`
	Priority    *task.Priority `json:"priority,omitempty"`
	Status      *task.Status   `json:"status,omitempty"`
	AssigneeID  *uuid.UUID     `json:"assignee_id"`
}

func (r CreateTaskRequest) Validate() error {
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if r.Description == "" {
		return service.NewValidationError("description", "описание не может быть пустым")
	}
	if r.DueDate == nil || r.DueDate.IsZero() {
		return service.NewValidationError("due_date", "срок обязателен")
	}
	if r.Priority != nil && !r.Priority.Valid() {
		return service.NewValidationError("priority", "неизвестный приоритет")
	}
	if r.Status != nil && !r.Status.Valid() {
		return service.NewValidationError("status", "неизвестный статус")
	}
	if r.AssigneeID == nil || *r.AssigneeID == uuid.Nil {
		return service.NewValidationError("assignee_id", "не указан исполнитель")
	}
	return nil
}

// ToTask собирает задачу от имени автора, пустые приоритет и статус заполнит сервис
func (r CreateTaskRequest) ToTask(creatorID uuid.UUID) *task.Task {
	t := &task.Task{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.UTC(),
		CreatorID:   creatorID,
		AssigneeID:  *r.AssigneeID,
	}
	if r.Priority != nil {
		t.Priority = *r.Priority
	}
	if r.Status != nil {
		t.Status = *r.Status
	}
	return t
}

type UpdateTaskRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Priority    *task.Priority `json:"priority,omitempty"`
	Status      *task.Status   `json:"status,omitempty"`
	AssigneeID  *uuid.UUID     `json:"assignee_id,omitempty"`
}

func (r UpdateTaskRequest) Validate() error {
	if r.ToPatch().IsEmpty() {
		return service.NewValidationError("body", "нет полей для обновления")
	}
	if r.Title != nil {
		if err := validateTitle(*r.Title); err != nil {
			return err
		}
	}
	if r.Description != nil && *r.Description == "" {
		return service.NewValidationError("description", "описание не может быть пустым")
	}
	if r.DueDate != nil && r.DueDate.IsZero() {
		return service.NewValidationError("due_date", "срок обязателен")
	}
	if r.Priority != nil && !r.Priority.Valid() {
		return service.NewValidationError("priority", "неизвестный приоритет")
	}
	if r.Status != nil && !r.Status.Valid() {
		return service.NewValidationError("status", "неизвестный статус")
	}
	if r.AssigneeID != nil && *r.AssigneeID == uuid.Nil {
		return service.NewValidationError("assignee_id", "не указан исполнитель")
	}
	return nil
}

func (r UpdateTaskRequest) ToPatch() task.Patch {
	patch := task.Patch{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Status:      r.Status,
		AssigneeID:  r.AssigneeID,
	}
	if r.DueDate != nil {
		due := r.DueDate.UTC()
		patch.DueDate = &due
	}
	return patch
}

func validateTitle(title string) error {
	if title == "" {
		return service.NewValidationError("title", "название не может быть пустым")
	}
	if utf8.RuneCountInString(title) > task.MaxTitleLength {
		return service.NewValidationError("title", fmt.Sprintf("название длиннее %d символов", task.MaxTitleLength))
	}
	return nil
}

type UserResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Avatar string    `json:"avatar,omitempty"`
}

func FromUser(p *user.Profile) *UserResponse {
	if p == nil {
		return nil
	}
	return &UserResponse{
		ID:     p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Avatar: p.Avatar,
	}
}

func FromUserList(users []*user.Profile) []*UserResponse {
	result := make([]*UserResponse, len(users))
	for i, p := range users {
		result[i] = FromUser(p)
	}
	return result
}

type TaskResponse struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	DueDate      time.Time     `json:"due_date"`
	Priority     task.Priority `json:"priority"`
	Status       task.Status   `json:"status"`
	CreatorID    uuid.UUID     `json:"creator_id"`
	AssigneeID   uuid.UUID     `json:"assignee_id"`
	Creator      *UserResponse `json:"creator,omitempty"`
	Assignee     *UserResponse `json:"assignee,omitempty"`
	LastEditedBy *uuid.UUID    `json:"last_edited_by,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty"`
	Version      int           `json:"version"`
	IsOverdue    bool          `json:"is_overdue"`
}

func FromTask(t *task.Task, now time.Time) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		DueDate:      t.DueDate,
		Priority:     t.Priority,
		Status:       t.Status,
		CreatorID:    t.CreatorID,
		AssigneeID:   t.AssigneeID,
		Creator:      FromUser(t.Creator),
		Assignee:     FromUser(t.Assignee),
		LastEditedBy: t.LastEditedBy,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Version:      t.Version,
		IsOverdue:    t.IsOverdue(now),
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}

type DashboardResponse struct {
	Assigned []TaskResponse `json:"assigned"`
	Created  []TaskResponse `json:"created"`
	Overdue  []TaskResponse `json:"overdue"`
}

func FromDashboard(d *task.Dashboard, now time.Time) DashboardResponse {
	return DashboardResponse{
		Assigned: FromTaskList(d.Assigned, now),
		Created:  FromTaskList(d.Created, now),
		Overdue:  FromTaskList(d.Overdue, now),
	}
}

type AuditLogResponse struct {
	ID             uuid.UUID     `json:"id"`
	TaskID         uuid.UUID     `json:"task_id"`
	Action         string        `json:"action"`
	PreviousStatus task.Status   `json:"previous_status"`
	NewStatus      task.Status   `json:"new_status"`
	Timestamp      time.Time     `json:"timestamp"`
	UserID         uuid.UUID     `json:"user_id"`
	User           *UserResponse `json:"user,omitempty"`
}

func FromAuditList(entries []*audit.Entry) []AuditLogResponse {
	result := make([]AuditLogResponse, len(entries))
	for i, e := range entries {
		result[i] = AuditLogResponse{
			ID:             e.ID,
			TaskID:         e.TaskID,
			Action:         e.Action,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			Timestamp:      e.Timestamp,
			UserID:         e.UserID,
			User:           FromUser(e.User),
		}
	}
	return result
}
