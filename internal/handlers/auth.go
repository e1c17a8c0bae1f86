package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/focusboard/apiserver/internal/apperr"
	"github.com/focusboard/apiserver/internal/services"
	"github.com/focusboard/apiserver/types"
)

// UserService is the account use-case surface used by the auth routes.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (types.User, error)
	Login(ctx context.Context, identifier, password string) (types.AccessToken, error)
}

// IdentityResolver maps a bearer token to an active user.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (types.User, error)
}

// LoginLimiter throttles login attempts per client.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// AuthHandler provides registration, login and identity endpoints.
type AuthHandler struct {
	users   UserService
	limiter LoginLimiter
	logger  *slog.Logger
}

func NewAuthHandler(users UserService, limiter LoginLimiter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, limiter: limiter, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, users UserService, limiter LoginLimiter, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewAuthHandler(users, limiter, logger)

	r.Post("/register", handler.Register)
	r.With(handler.throttleLogin).Post("/login", handler.Login)
	r.With(authMiddleware).Get("/me", handler.Me)
}

// RequireUser resolves the bearer token and injects the user into the
// request context.
func RequireUser(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeServiceError(w, r, logger, apperr.ErrNotAuthenticated)
				return
			}

			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// Register creates an account and returns it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login accepts form fields username and password (a JSON body with the
// same fields also works) and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, h.logger, apperr.ErrNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// throttleLogin rejects clients that exhausted their login budget. When
// the limiter itself fails the request is let through.
func (h *AuthHandler) throttleLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, wait, err := h.limiter.Allow(r.Context(), "login:"+clientIP(r))
		if err != nil {
			h.logger.WarnContext(r.Context(), "login rate limiter unavailable", slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
