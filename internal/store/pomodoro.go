package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/focusboard/apiserver/types"
)

const sessionColumns = `s.id, s.task_id, s.duration_minutes, s.session_type, s.started_at, s.completed_at, s.actual_duration_minutes, s.created_at`

// PomodoroRepository handles persistence for pomodoro sessions. Sessions
// have no owner column; reads that take a userID go through the owning
// task.
type PomodoroRepository struct {
	db DBTX
}

func NewPomodoroRepository(db DBTX) *PomodoroRepository {
	return &PomodoroRepository{db: db}
}

func (r *PomodoroRepository) Get(ctx context.Context, userID, id int64) (types.PomodoroSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM pomodoro_sessions s
		JOIN tasks t ON t.id = s.task_id
		WHERE s.id = $1 AND t.user_id = $2`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PomodoroSession{}, ErrNotFound
		}
		return types.PomodoroSession{}, err
	}
	return session, nil
}

// ListByUser returns the user's sessions, newest first. A non-nil taskID
// narrows the result to one task.
func (r *PomodoroRepository) ListByUser(ctx context.Context, userID int64, taskID *int64) ([]types.PomodoroSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM pomodoro_sessions s
		JOIN tasks t ON t.id = s.task_id
		WHERE t.user_id = $1 AND ($2::BIGINT IS NULL OR s.task_id = $2)
		ORDER BY s.created_at DESC, s.id DESC`
	return r.list(ctx, query, userID, taskID)
}

// List returns every session ordered by ID.
func (r *PomodoroRepository) List(ctx context.Context) ([]types.PomodoroSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM pomodoro_sessions s ORDER BY s.id`
	return r.list(ctx, query)
}

func (r *PomodoroRepository) list(ctx context.Context, query string, args ...any) ([]types.PomodoroSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]types.PomodoroSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PomodoroRepository) Create(ctx context.Context, session types.PomodoroSession) (types.PomodoroSession, error) {
	session.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO pomodoro_sessions (task_id, duration_minutes, session_type, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		session.TaskID,
		session.DurationMinutes,
		session.SessionType,
		session.CreatedAt,
	).Scan(&session.ID); err != nil {
		return types.PomodoroSession{}, err
	}
	return session, nil
}

// MarkStarted sets started_at on a session that has not started. It
// returns ErrConflict when the session already has a start time.
func (r *PomodoroRepository) MarkStarted(ctx context.Context, id int64, at time.Time) error {
	const query = `
		UPDATE pomodoro_sessions
		SET started_at = $1
		WHERE id = $2 AND started_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	return expectAffected(result, ErrConflict)
}

// MarkCompleted sets completed_at and the actual duration on a started,
// uncompleted session. It returns ErrConflict otherwise.
func (r *PomodoroRepository) MarkCompleted(ctx context.Context, id int64, at time.Time, actualMinutes int) error {
	const query = `
		UPDATE pomodoro_sessions
		SET completed_at = $1,
			actual_duration_minutes = $2
		WHERE id = $3 AND started_at IS NOT NULL AND completed_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, at, actualMinutes, id)
	if err != nil {
		return err
	}
	return expectAffected(result, ErrConflict)
}

// UpdateTimes overwrites the timing fields of a session unconditionally.
func (r *PomodoroRepository) UpdateTimes(ctx context.Context, session types.PomodoroSession) error {
	const query = `
		UPDATE pomodoro_sessions
		SET started_at = $1,
			completed_at = $2,
			actual_duration_minutes = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(
		ctx,
		query,
		session.StartedAt,
		session.CompletedAt,
		session.ActualDurationMinutes,
		session.ID,
	)
	if err != nil {
		return err
	}
	return expectAffected(result, ErrNotFound)
}

func (r *PomodoroRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM pomodoro_sessions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(result, ErrNotFound)
}

func scanSession(row rowScanner) (types.PomodoroSession, error) {
	var session types.PomodoroSession
	err := row.Scan(
		&session.ID,
		&session.TaskID,
		&session.DurationMinutes,
		&session.SessionType,
		&session.StartedAt,
		&session.CompletedAt,
		&session.ActualDurationMinutes,
		&session.CreatedAt,
	)
	return session, err
}
