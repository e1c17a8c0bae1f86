package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/focusboard/apiserver/internal/apperr"
	"github.com/focusboard/apiserver/internal/store"
	"github.com/focusboard/apiserver/types"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
)

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Get(ctx context.Context, userID, id int64) (types.Task, error)
	ListByUser(ctx context.Context, userID int64) ([]types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	Update(ctx context.Context, task types.Task) (types.Task, error)
	Delete(ctx context.Context, userID, id int64) error
}

// CreateTaskInput holds the fields accepted when creating a task.
// Status defaults to todo and Priority to medium.
type CreateTaskInput struct {
	Title       string             `json:"title"`
	Description *string            `json:"description"`
	Status      types.TaskStatus   `json:"status"`
	Priority    types.TaskPriority `json:"priority"`
	DueDate     *time.Time         `json:"due_date"`
}

// TaskService encapsulates task use-cases for a single owner.
type TaskService struct {
	repo   TaskRepository
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewTaskService(repo TaskRepository, events EventPublisher, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskService) List(ctx context.Context, userID int64) ([]types.Task, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (types.Task, error) {
	task, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.Task{}, taskLookupError(err)
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, userID int64, in CreateTaskInput) (types.Task, error) {
	task := types.Task{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	}
	if task.Status == "" {
		task.Status = types.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = types.TaskPriorityMedium
	}
	if err := validateTask(task); err != nil {
		return types.Task{}, err
	}
	if task.Status == types.TaskStatusDone {
		now := s.now()
		task.CompletedAt = &now
	}

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return types.Task{}, fmt.Errorf("create task: %w", err)
	}
	if created.Status == types.TaskStatusDone {
		s.publishCompleted(ctx, created)
	}
	return created, nil
}

// Update applies patch to the task. completed_at is stamped the first time
// the task moves into done and is left alone afterwards.
func (s *TaskService) Update(ctx context.Context, userID, id int64, patch types.TaskPatch) (types.Task, error) {
	task, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.Task{}, taskLookupError(err)
	}
	previous := task.Status

	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		task.Description = patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if err := validateTask(task); err != nil {
		return types.Task{}, err
	}

	enteredDone := previous != types.TaskStatusDone && task.Status == types.TaskStatusDone
	if enteredDone && task.CompletedAt == nil {
		now := s.now()
		task.CompletedAt = &now
	}

	updated, err := s.repo.Update(ctx, task)
	if err != nil {
		return types.Task{}, taskLookupError(err)
	}
	if enteredDone {
		s.publishCompleted(ctx, updated)
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return taskLookupError(err)
	}
	return nil
}

func (s *TaskService) publishCompleted(ctx context.Context, task types.Task) {
	occurredAt := s.now()
	if task.CompletedAt != nil {
		occurredAt = *task.CompletedAt
	}
	publishEvent(ctx, s.events, s.logger, types.Event{
		Type:       types.EventTaskCompleted,
		UserID:     task.UserID,
		TaskID:     task.ID,
		OccurredAt: occurredAt,
	})
}

func validateTask(task types.Task) error {
	if n := utf8.RuneCountInString(task.Title); n == 0 || n > maxTitleLength {
		return apperr.Validation(fmt.Sprintf("title must be between 1 and %d characters", maxTitleLength))
	}
	if task.Description != nil && utf8.RuneCountInString(*task.Description) > maxDescriptionLength {
		return apperr.Validation(fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if !task.Status.Valid() {
		return apperr.Validation("status must be one of todo, in_progress, done")
	}
	if !task.Priority.Valid() {
		return apperr.Validation("priority must be one of low, medium, high")
	}
	return nil
}

func taskLookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrTaskNotFound
	}
	return err
}
