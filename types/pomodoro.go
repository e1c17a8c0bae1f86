package types

import "time"

// SessionType distinguishes focused work from breaks.
type SessionType string

const (
	SessionTypeWork       SessionType = "work"
	SessionTypeShortBreak SessionType = "short_break"
	SessionTypeLongBreak  SessionType = "long_break"
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeWork, SessionTypeShortBreak, SessionTypeLongBreak:
		return true
	}
	return false
}

const (
	MinSessionMinutes = 1
	MaxSessionMinutes = 60
)

// SessionState is the derived lifecycle position of a pomodoro session.
type SessionState string

const (
	SessionCreated   SessionState = "created"
	SessionStarted   SessionState = "started"
	SessionCompleted SessionState = "completed"
)

// PomodoroSession is a timed unit of focused work or break tracked
// against a task. Its lifecycle is created -> started -> completed.
type PomodoroSession struct {
	// ID is the unique identifier of the session.
	ID int64 `json:"id" db:"id"`

	// TaskID identifies the owning task. Deleting the task deletes the session.
	TaskID int64 `json:"task_id" db:"task_id"`

	// DurationMinutes is the planned length, between 1 and 60 minutes.
	DurationMinutes int `json:"duration_minutes" db:"duration_minutes"`

	// SessionType is work, short_break or long_break.
	SessionType SessionType `json:"session_type" db:"session_type"`

	// StartedAt is set by the start transition.
	StartedAt *time.Time `json:"started_at" db:"started_at"`

	// CompletedAt is set by the complete transition, never before StartedAt.
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`

	// ActualDurationMinutes is the whole minutes between StartedAt and
	// CompletedAt. It is present exactly when CompletedAt is.
	ActualDurationMinutes *int `json:"actual_duration_minutes" db:"actual_duration_minutes"`

	// CreatedAt is the timestamp when the session was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// State derives the lifecycle position from the timestamps.
func (s PomodoroSession) State() SessionState {
	switch {
	case s.CompletedAt != nil:
		return SessionCompleted
	case s.StartedAt != nil:
		return SessionStarted
	default:
		return SessionCreated
	}
}

// PomodoroSessionPatch is the correction path for a session. It bypasses
// the start/complete ordering checks.
type PomodoroSessionPatch struct {
	StartedAt             *time.Time `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at"`
	ActualDurationMinutes *int       `json:"actual_duration_minutes"`
}
