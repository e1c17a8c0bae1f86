package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/focusboard/apiserver/internal/store"
	"github.com/focusboard/apiserver/types"
)

const backupFormatVersion = "1"

// BackupData is the complete export written by the backup command.
type BackupData struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Users      []UserBackup            `json:"users"`
	Tasks      []types.Task            `json:"tasks"`
	Sessions   []types.PomodoroSession `json:"sessions"`
}

// UserBackup is a user row including its password hash.
type UserBackup struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BackupSource reads every exported table as one consistent snapshot.
type BackupSource interface {
	Snapshot(ctx context.Context) (store.Snapshot, error)
}

// ObjectWriter stores backup documents.
type ObjectWriter interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// BackupService exports the database to object storage.
type BackupService struct {
	source  BackupSource
	objects ObjectWriter
	now     func() time.Time
}

func NewBackupService(source BackupSource, objects ObjectWriter) *BackupService {
	return &BackupService{
		source:  source,
		objects: objects,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Collect reads every table into a BackupData.
func (s *BackupService) Collect(ctx context.Context) (BackupData, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return BackupData{}, fmt.Errorf("export snapshot: %w", err)
	}
	users, tasks, sessions := snap.Users, snap.Tasks, snap.Sessions

	data := BackupData{
		Version:    backupFormatVersion,
		ExportedAt: s.now(),
		Users:      make([]UserBackup, 0, len(users)),
		Tasks:      tasks,
		Sessions:   sessions,
	}
	for _, u := range users {
		data.Users = append(data.Users, UserBackup{
			ID:           u.ID,
			Email:        u.Email,
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			IsActive:     u.IsActive,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		})
	}
	return data, nil
}

// Export writes a backup document and returns its object key.
func (s *BackupService) Export(ctx context.Context) (string, error) {
	data, err := s.Collect(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}

	if err := s.objects.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := fmt.Sprintf("backups/%s-%s.json", data.ExportedAt.Format("20060102T150405Z"), uuid.NewString())
	if err := s.objects.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "application/json"); err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}
	return key, nil
}
