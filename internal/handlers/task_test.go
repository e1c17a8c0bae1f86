package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/focusboard/apiserver/internal/apperr"
	"github.com/focusboard/apiserver/internal/services"
	"github.com/focusboard/apiserver/types"
)

type stubTasks struct {
	tasks   map[int64]types.Task
	err     error
	created services.CreateTaskInput
	patched types.TaskPatch
	deleted int64
}

func (s *stubTasks) List(_ context.Context, userID int64) ([]types.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []types.Task
	for _, task := range s.tasks {
		if task.UserID == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (s *stubTasks) Get(_ context.Context, userID, id int64) (types.Task, error) {
	if s.err != nil {
		return types.Task{}, s.err
	}
	task, ok := s.tasks[id]
	if !ok || task.UserID != userID {
		return types.Task{}, apperr.ErrTaskNotFound
	}
	return task, nil
}

func (s *stubTasks) Create(_ context.Context, userID int64, in services.CreateTaskInput) (types.Task, error) {
	s.created = in
	if s.err != nil {
		return types.Task{}, s.err
	}
	return types.Task{ID: 10, UserID: userID, Title: in.Title, Status: types.TaskStatusTodo, Priority: types.TaskPriorityMedium}, nil
}

func (s *stubTasks) Update(ctx context.Context, userID, id int64, patch types.TaskPatch) (types.Task, error) {
	s.patched = patch
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return types.Task{}, err
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	return task, nil
}

func (s *stubTasks) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	s.deleted = id
	return nil
}

// asUser stands in for RequireUser and authenticates every request as user.
func asUser(user types.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func newTaskRouter(tasks TaskService, user types.User) http.Handler {
	r := chi.NewRouter()
	r.Route("/tasks", func(r chi.Router) {
		TaskRouter(r, tasks, asUser(user), discardLogger())
	})
	return r
}

func TestTaskRoutes(t *testing.T) {
	owner := types.User{ID: 1, Username: "alice", IsActive: true}
	seed := func() *stubTasks {
		return &stubTasks{tasks: map[int64]types.Task{
			3: {ID: 3, UserID: 1, Title: "write report", Status: types.TaskStatusTodo},
			4: {ID: 4, UserID: 2, Title: "someone else's", Status: types.TaskStatusTodo},
		}}
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "list", method: http.MethodGet, path: "/tasks/", wantStatus: http.StatusOK},
		{name: "create", method: http.MethodPost, path: "/tasks/", body: `{"title":"plan sprint"}`, wantStatus: http.StatusCreated},
		{name: "create malformed", method: http.MethodPost, path: "/tasks/", body: `[`, wantStatus: http.StatusBadRequest},
		{name: "get", method: http.MethodGet, path: "/tasks/3", wantStatus: http.StatusOK},
		{name: "get other owner", method: http.MethodGet, path: "/tasks/4", wantStatus: http.StatusNotFound},
		{name: "get bad id", method: http.MethodGet, path: "/tasks/abc", wantStatus: http.StatusBadRequest},
		{name: "get zero id", method: http.MethodGet, path: "/tasks/0", wantStatus: http.StatusBadRequest},
		{name: "update", method: http.MethodPut, path: "/tasks/3", body: `{"status":"done"}`, wantStatus: http.StatusOK},
		{name: "delete", method: http.MethodDelete, path: "/tasks/3", wantStatus: http.StatusNoContent},
		{name: "delete other owner", method: http.MethodDelete, path: "/tasks/4", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			newTaskRouter(seed(), owner).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestListTasksEmptyArray(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)

	newTaskRouter(&stubTasks{}, types.User{ID: 9}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestUpdateTaskPassesPatch(t *testing.T) {
	tasks := &stubTasks{tasks: map[int64]types.Task{3: {ID: 3, UserID: 1, Status: types.TaskStatusTodo}}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/tasks/3", strings.NewReader(`{"status":"done","title":"renamed"}`))

	newTaskRouter(tasks, types.User{ID: 1}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if tasks.patched.Status == nil || *tasks.patched.Status != types.TaskStatusDone {
		t.Errorf("status patch = %v", tasks.patched.Status)
	}
	if tasks.patched.Title == nil || *tasks.patched.Title != "renamed" {
		t.Errorf("title patch = %v", tasks.patched.Title)
	}
	if tasks.patched.Priority != nil {
		t.Error("priority should be left unset")
	}

	var task types.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Status != types.TaskStatusDone {
		t.Errorf("task = %+v", task)
	}
}

func TestTaskInternalErrorIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)

	newTaskRouter(&stubTasks{err: errors.New("pq: relation \"tasks\" does not exist")}, types.User{ID: 1}).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec); got != "internal server error" {
		t.Errorf("error = %q", got)
	}
}

func TestTaskRoutesRequireUser(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/tasks", func(r chi.Router) {
		TaskRouter(r, &stubTasks{}, RequireUser(stubResolver{}, discardLogger()), discardLogger())
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
