package audit

import (
	"time"

	"taskHub/internal/models/task"
	"taskHub/internal/models/user"

	"github.com/google/uuid"
)

const ActionStatusUpdate = "STATUS_UPDATE"
const ActionStatusChange = "STATUS_CHANGE"

// Entry - неизменяемая запись о смене статуса задачи
type Entry struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	TaskID         uuid.UUID     `json:"task_id" db:"task_id"`
	UserID         uuid.UUID     `json:"user_id" db:"user_id"`
	Action         string        `json:"action" db:"action"`
	PreviousStatus task.Status   `json:"previous_status" db:"previous_status"`
	NewStatus      task.Status   `json:"new_status" db:"new_status"`
	Timestamp      time.Time     `json:"timestamp" db:"timestamp"`
	User           *user.Profile `json:"user,omitempty" db:"-"`
}
