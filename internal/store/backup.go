package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/focusboard/apiserver/types"
)

// Snapshot is every row of the exported tables as of one instant.
type Snapshot struct {
	Users    []types.User
	Tasks    []types.Task
	Sessions []types.PomodoroSession
}

// BackupReader reads whole tables for export.
type BackupReader struct {
	conn *sql.DB
}

func NewBackupReader(conn *sql.DB) *BackupReader {
	return &BackupReader{conn: conn}
}

// Snapshot reads users, tasks and sessions inside one read-only
// repeatable-read transaction, so every exported session references an
// exported task.
func (b *BackupReader) Snapshot(ctx context.Context) (Snapshot, error) {
	tx, err := b.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var snap Snapshot
	if snap.Users, err = (&UserRepository{db: tx}).List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("read users: %w", err)
	}
	if snap.Tasks, err = NewTaskRepository(tx).List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("read tasks: %w", err)
	}
	if snap.Sessions, err = NewPomodoroRepository(tx).List(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("read sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("end snapshot: %w", err)
	}
	return snap, nil
}
