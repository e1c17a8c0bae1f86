package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/focusboard/apiserver/internal/apperr"
	"github.com/focusboard/apiserver/internal/services"
	"github.com/focusboard/apiserver/types"
)

// PomodoroService is the session use-case surface used by the pomodoro
// routes.
type PomodoroService interface {
	List(ctx context.Context, userID int64, taskID *int64) ([]types.PomodoroSession, error)
	Get(ctx context.Context, userID, id int64) (types.PomodoroSession, error)
	Create(ctx context.Context, userID int64, in services.CreateSessionInput) (types.PomodoroSession, error)
	Start(ctx context.Context, userID, id int64) (types.PomodoroSession, error)
	Complete(ctx context.Context, userID, id int64) (types.PomodoroSession, error)
	Update(ctx context.Context, userID, id int64, patch types.PomodoroSessionPatch) (types.PomodoroSession, error)
	Delete(ctx context.Context, userID, id int64) error
}

type PomodoroHandler struct {
	sessions PomodoroService
	logger   *slog.Logger
}

func NewPomodoroHandler(sessions PomodoroService, logger *slog.Logger) *PomodoroHandler {
	return &PomodoroHandler{sessions: sessions, logger: logger}
}

// PomodoroRouter registers session routes on the given router.
func PomodoroRouter(r chi.Router, sessions PomodoroService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewPomodoroHandler(sessions, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListSessions)
	r.Post("/", handler.CreateSession)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", handler.GetSession)
		r.Put("/", handler.UpdateSession)
		r.Delete("/", handler.DeleteSession)
		r.Post("/start", handler.StartSession)
		r.Post("/complete", handler.CompleteSession)
	})
}

// ListSessions returns the caller's sessions, optionally narrowed by the
// task_id query parameter.
func (h *PomodoroHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var taskID *int64
	if raw := r.URL.Query().Get("task_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			writeError(w, http.StatusBadRequest, "invalid task_id")
			return
		}
		taskID = &id
	}

	sessions, err := h.sessions.List(r.Context(), user.ID, taskID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if sessions == nil {
		sessions = []types.PomodoroSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *PomodoroHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req services.CreateSessionInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *PomodoroHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.sessions.Get)
}

func (h *PomodoroHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.sessions.Start)
}

func (h *PomodoroHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, h.sessions.Complete)
}

func (h *PomodoroHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch types.PomodoroSessionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessions.Update(r.Context(), user.ID, id, patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *PomodoroHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withSession runs a single-session operation addressed by the URL.
func (h *PomodoroHandler) withSession(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, id int64) (types.PomodoroSession, error)) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := op(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *PomodoroHandler) user(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, h.logger, apperr.ErrNotAuthenticated)
	}
	return user, ok
}
