package types

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority ranks tasks for the owner.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work owned by exactly one user. Pomodoro sessions
// are tracked against tasks.
type Task struct {
	// ID is the unique identifier of the task.
	ID int64 `json:"id" db:"id"`

	// UserID identifies the owner. Deleting the owner deletes the task.
	UserID int64 `json:"user_id" db:"user_id"`

	// Title is the short human-readable name of the task.
	Title string `json:"title" db:"title"`

	// Description is optional free-form detail.
	Description *string `json:"description" db:"description"`

	// Status is the current workflow state.
	Status TaskStatus `json:"status" db:"status"`

	// Priority is the owner-assigned importance.
	Priority TaskPriority `json:"priority" db:"priority"`

	// DueDate is an optional deadline.
	DueDate *time.Time `json:"due_date" db:"due_date"`

	// CreatedAt is the timestamp when the task was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the task.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// CompletedAt is set once, when the task first enters the done status.
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// TaskPatch lists the task fields a caller may change. Nil fields are
// left untouched.
type TaskPatch struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Status      *TaskStatus   `json:"status"`
	Priority    *TaskPriority `json:"priority"`
	DueDate     *time.Time    `json:"due_date"`
}
