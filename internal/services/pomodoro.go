package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/focusboard/apiserver/internal/apperr"
	"github.com/focusboard/apiserver/internal/store"
	"github.com/focusboard/apiserver/types"
)

// PomodoroRepository defines persistence operations for pomodoro sessions.
// MarkStarted and MarkCompleted are conditional and return
// store.ErrConflict when the session left the expected state.
type PomodoroRepository interface {
	Get(ctx context.Context, userID, id int64) (types.PomodoroSession, error)
	ListByUser(ctx context.Context, userID int64, taskID *int64) ([]types.PomodoroSession, error)
	Create(ctx context.Context, session types.PomodoroSession) (types.PomodoroSession, error)
	MarkStarted(ctx context.Context, id int64, at time.Time) error
	MarkCompleted(ctx context.Context, id int64, at time.Time, actualMinutes int) error
	UpdateTimes(ctx context.Context, session types.PomodoroSession) error
	Delete(ctx context.Context, id int64) error
}

// TaskFinder loads a task owned by a user.
type TaskFinder interface {
	Get(ctx context.Context, userID, id int64) (types.Task, error)
}

// CreateSessionInput holds the fields accepted when creating a session.
type CreateSessionInput struct {
	TaskID          int64             `json:"task_id"`
	DurationMinutes int               `json:"duration_minutes"`
	SessionType     types.SessionType `json:"session_type"`
}

// PomodoroService drives sessions through created, started and completed.
type PomodoroService struct {
	repo   PomodoroRepository
	tasks  TaskFinder
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewPomodoroService(repo PomodoroRepository, tasks TaskFinder, events EventPublisher, logger *slog.Logger) *PomodoroService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PomodoroService{
		repo:   repo,
		tasks:  tasks,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *PomodoroService) Create(ctx context.Context, userID int64, in CreateSessionInput) (types.PomodoroSession, error) {
	if err := validateDuration("duration_minutes", in.DurationMinutes); err != nil {
		return types.PomodoroSession{}, err
	}
	if !in.SessionType.Valid() {
		return types.PomodoroSession{}, apperr.Validation("session_type must be one of work, short_break, long_break")
	}

	if _, err := s.tasks.Get(ctx, userID, in.TaskID); err != nil {
		return types.PomodoroSession{}, taskLookupError(err)
	}

	session, err := s.repo.Create(ctx, types.PomodoroSession{
		TaskID:          in.TaskID,
		DurationMinutes: in.DurationMinutes,
		SessionType:     in.SessionType,
	})
	if err != nil {
		return types.PomodoroSession{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *PomodoroService) Get(ctx context.Context, userID, id int64) (types.PomodoroSession, error) {
	session, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.PomodoroSession{}, sessionLookupError(err)
	}
	return session, nil
}

// List returns the user's sessions, optionally restricted to one task.
func (s *PomodoroService) List(ctx context.Context, userID int64, taskID *int64) ([]types.PomodoroSession, error) {
	return s.repo.ListByUser(ctx, userID, taskID)
}

// Start moves a created session to started.
func (s *PomodoroService) Start(ctx context.Context, userID, id int64) (types.PomodoroSession, error) {
	session, err := s.Get(ctx, userID, id)
	if err != nil {
		return types.PomodoroSession{}, err
	}
	if session.StartedAt != nil {
		return types.PomodoroSession{}, apperr.ErrSessionAlreadyStarted
	}

	now := s.now()
	if err := s.repo.MarkStarted(ctx, session.ID, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.PomodoroSession{}, apperr.ErrSessionAlreadyStarted
		}
		return types.PomodoroSession{}, fmt.Errorf("start session: %w", err)
	}

	session.StartedAt = &now
	return session, nil
}

// Complete moves a started session to completed and records how many
// whole minutes it ran.
func (s *PomodoroService) Complete(ctx context.Context, userID, id int64) (types.PomodoroSession, error) {
	session, err := s.Get(ctx, userID, id)
	if err != nil {
		return types.PomodoroSession{}, err
	}
	if session.StartedAt == nil {
		return types.PomodoroSession{}, apperr.ErrSessionNotStarted
	}
	if session.CompletedAt != nil {
		return types.PomodoroSession{}, apperr.ErrSessionAlreadyCompleted
	}

	now := s.now()
	actual := elapsedMinutes(*session.StartedAt, now)
	if err := s.repo.MarkCompleted(ctx, session.ID, now, actual); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.PomodoroSession{}, apperr.ErrSessionAlreadyCompleted
		}
		return types.PomodoroSession{}, fmt.Errorf("complete session: %w", err)
	}

	session.CompletedAt = &now
	session.ActualDurationMinutes = &actual

	publishEvent(ctx, s.events, s.logger, types.Event{
		Type:       types.EventPomodoroCompleted,
		UserID:     userID,
		TaskID:     session.TaskID,
		SessionID:  session.ID,
		Minutes:    actual,
		OccurredAt: now,
	})
	return session, nil
}

// Update overwrites the timing fields present in patch. It is a
// correction path and does not check start/complete ordering.
func (s *PomodoroService) Update(ctx context.Context, userID, id int64, patch types.PomodoroSessionPatch) (types.PomodoroSession, error) {
	if patch.ActualDurationMinutes != nil {
		if err := validateDuration("actual_duration_minutes", *patch.ActualDurationMinutes); err != nil {
			return types.PomodoroSession{}, err
		}
	}

	session, err := s.Get(ctx, userID, id)
	if err != nil {
		return types.PomodoroSession{}, err
	}
	if patch.StartedAt != nil {
		session.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		session.CompletedAt = patch.CompletedAt
	}
	if patch.ActualDurationMinutes != nil {
		session.ActualDurationMinutes = patch.ActualDurationMinutes
	}

	if err := s.repo.UpdateTimes(ctx, session); err != nil {
		return types.PomodoroSession{}, sessionLookupError(err)
	}
	return session, nil
}

func (s *PomodoroService) Delete(ctx context.Context, userID, id int64) error {
	session, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, session.ID); err != nil {
		return sessionLookupError(err)
	}
	return nil
}

// elapsedMinutes floors the interval to whole minutes. A clock that went
// backwards yields zero.
func elapsedMinutes(start, end time.Time) int {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Minute)
}

func validateDuration(field string, minutes int) error {
	if minutes < types.MinSessionMinutes || minutes > types.MaxSessionMinutes {
		return apperr.Validation(fmt.Sprintf("%s must be between %d and %d", field, types.MinSessionMinutes, types.MaxSessionMinutes))
	}
	return nil
}

func sessionLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrSessionNotFound
	}
	return err
}
