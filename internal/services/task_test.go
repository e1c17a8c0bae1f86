package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/focusboard/apiserver/internal/apperr"
	"github.com/focusboard/apiserver/types"
)

func newTestTaskService(repo *memTaskRepo, events EventPublisher, now time.Time) *TaskService {
	svc := NewTaskService(repo, events, discardLogger)
	svc.now = func() time.Time { return now }
	return svc
}

func ptr[T any](v T) *T {
	return &v
}

func TestTaskServiceCreateDefaults(t *testing.T) {
	svc := newTestTaskService(newMemTaskRepo(), nil, time.Now())

	task, err := svc.Create(context.Background(), 1, CreateTaskInput{Title: "  write report  "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Title != "write report" {
		t.Errorf("Title = %q, want trimmed", task.Title)
	}
	if task.Status != types.TaskStatusTodo {
		t.Errorf("Status = %q, want todo", task.Status)
	}
	if task.Priority != types.TaskPriorityMedium {
		t.Errorf("Priority = %q, want medium", task.Priority)
	}
	if task.CompletedAt != nil {
		t.Error("CompletedAt should be unset for a new todo task")
	}
	if task.UserID != 1 {
		t.Errorf("UserID = %d, want 1", task.UserID)
	}
}

func TestTaskServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateTaskInput
	}{
		{name: "empty title", input: CreateTaskInput{Title: "   "}},
		{name: "long title", input: CreateTaskInput{Title: strings.Repeat("x", 201)}},
		{name: "long description", input: CreateTaskInput{Title: "t", Description: ptr(strings.Repeat("x", 1001))}},
		{name: "unknown status", input: CreateTaskInput{Title: "t", Status: "blocked"}},
		{name: "unknown priority", input: CreateTaskInput{Title: "t", Priority: "urgent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestTaskService(newMemTaskRepo(), nil, time.Now())
			if _, err := svc.Create(context.Background(), 1, tt.input); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestTaskServiceCompletedAt(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := newMemTaskRepo()
	events := &recordingPublisher{}
	svc := newTestTaskService(repo, events, t0)
	ctx := context.Background()

	task, err := svc.Create(ctx, 1, CreateTaskInput{Title: "ship it"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	task, err = svc.Update(ctx, 1, task.ID, types.TaskPatch{Status: ptr(types.TaskStatusInProgress)})
	if err != nil {
		t.Fatalf("Update to in_progress: %v", err)
	}
	if task.CompletedAt != nil {
		t.Fatal("CompletedAt set by a non-done transition")
	}

	task, err = svc.Update(ctx, 1, task.ID, types.TaskPatch{Status: ptr(types.TaskStatusDone)})
	if err != nil {
		t.Fatalf("Update to done: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(t0) {
		t.Fatalf("CompletedAt = %v, want %v", task.CompletedAt, t0)
	}

	svc.now = func() time.Time { return t0.Add(time.Hour) }
	task, err = svc.Update(ctx, 1, task.ID, types.TaskPatch{Title: ptr("ship it again")})
	if err != nil {
		t.Fatalf("Update title: %v", err)
	}
	if !task.CompletedAt.Equal(t0) {
		t.Errorf("CompletedAt changed by an update within done: %v", task.CompletedAt)
	}

	task, err = svc.Update(ctx, 1, task.ID, types.TaskPatch{Status: ptr(types.TaskStatusTodo)})
	if err != nil {
		t.Fatalf("Update back to todo: %v", err)
	}
	if task.CompletedAt == nil {
		t.Error("CompletedAt must never be cleared")
	}

	task, err = svc.Update(ctx, 1, task.ID, types.TaskPatch{Status: ptr(types.TaskStatusDone)})
	if err != nil {
		t.Fatalf("Update to done again: %v", err)
	}
	if !task.CompletedAt.Equal(t0) {
		t.Errorf("CompletedAt = %v, want first completion %v", task.CompletedAt, t0)
	}

	if got := events.eventTypes(); len(got) != 2 {
		t.Errorf("events = %v, want two task.completed", got)
	}
}

func TestTaskServiceCreateDone(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTaskService(newMemTaskRepo(), nil, t0)

	task, err := svc.Create(context.Background(), 1, CreateTaskInput{Title: "already done", Status: types.TaskStatusDone})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(t0) {
		t.Errorf("CompletedAt = %v, want %v", task.CompletedAt, t0)
	}
}

func TestTaskServiceOwnership(t *testing.T) {
	repo := newMemTaskRepo()
	svc := newTestTaskService(repo, nil, time.Now())
	ctx := context.Background()

	task, err := svc.Create(ctx, 1, CreateTaskInput{Title: "mine"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, 2, task.ID); !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Get by other user: err = %v, want ErrTaskNotFound", err)
	}
	if _, err := svc.Update(ctx, 2, task.ID, types.TaskPatch{Title: ptr("stolen")}); !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Update by other user: err = %v, want ErrTaskNotFound", err)
	}
	if err := svc.Delete(ctx, 2, task.ID); !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Delete by other user: err = %v, want ErrTaskNotFound", err)
	}

	list, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("other user sees %d tasks, want 0", len(list))
	}

	if err := svc.Delete(ctx, 1, task.ID); err != nil {
		t.Fatalf("Delete by owner: %v", err)
	}
	if _, err := svc.Get(ctx, 1, task.ID); !errors.Is(err, apperr.ErrTaskNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrTaskNotFound", err)
	}
}

func TestTaskServiceUpdateValidation(t *testing.T) {
	svc := newTestTaskService(newMemTaskRepo(), nil, time.Now())
	ctx := context.Background()

	task, err := svc.Create(ctx, 1, CreateTaskInput{Title: "t"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(ctx, 1, task.ID, types.TaskPatch{Title: ptr("")}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty title: err = %v, want validation", err)
	}
	if _, err := svc.Update(ctx, 1, task.ID, types.TaskPatch{Status: ptr(types.TaskStatus("paused"))}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad status: err = %v, want validation", err)
	}
}
