package types

import "time"

// EventType names a domain event published to the message queue.
type EventType string

const (
	EventUserRegistered    EventType = "user.registered"
	EventTaskCompleted     EventType = "task.completed"
	EventPomodoroCompleted EventType = "pomodoro.completed"
)

// Event is the envelope of every published domain event.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	UserID     int64     `json:"user_id"`
	TaskID     int64     `json:"task_id,omitempty"`
	SessionID  int64     `json:"session_id,omitempty"`
	Minutes    int       `json:"minutes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
