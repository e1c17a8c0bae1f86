package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/focusboard/apiserver/config"
	"github.com/focusboard/apiserver/internal/auth"
	"github.com/focusboard/apiserver/internal/db"
	"github.com/focusboard/apiserver/internal/events"
	"github.com/focusboard/apiserver/internal/handlers"
	"github.com/focusboard/apiserver/internal/mq"
	"github.com/focusboard/apiserver/internal/ratelimit"
	"github.com/focusboard/apiserver/internal/services"
	"github.com/focusboard/apiserver/internal/store"
)

const (
	loginLimiterPrefix = "focusboard:ratelimit"

	// requestTimeout bounds handler work. The write deadline leaves room
	// for the 504 that middleware.Timeout writes once it expires.
	requestTimeout = 15 * time.Second
	writeTimeout   = requestTimeout + 5*time.Second
)

// Server wraps the HTTP server, router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      mq.Backend
	redis      *redis.Client
	logger     *slog.Logger
}

// New connects to the configured backends and wires every route.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	s := &Server{db: dbConn, logger: logger}

	var publisher services.EventPublisher
	queue, err := mq.Open(ctx, cfg.Queue)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("message queue disabled, domain events will not be published")
	case err != nil:
		_ = s.close()
		return nil, err
	default:
		s.queue = queue
		publisher = events.NewPublisher(queue, cfg.Queue.EventsTopic)
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Enabled() {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			_ = s.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		limiter = ratelimit.New(s.redis, logger, loginLimiterPrefix, cfg.Auth.LoginRate, cfg.Auth.LoginBurst)
	} else {
		logger.Info("redis not configured, login rate limiting disabled")
	}

	userRepo := store.NewUserRepository(dbConn)
	taskRepo := store.NewTaskRepository(dbConn)
	sessionRepo := store.NewPomodoroRepository(dbConn)

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	resolver := auth.NewResolver(tokens, userRepo)

	userService := services.NewUserService(userRepo, hasher, tokens,
		services.WithUserTx(userTx(userRepo)),
		services.WithUserEvents(publisher),
		services.WithUserLogger(logger),
	)
	taskService := services.NewTaskService(taskRepo, publisher, logger)
	pomodoroService := services.NewPomodoroService(sessionRepo, taskRepo, publisher, logger)

	authMiddleware := handlers.RequireUser(resolver, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		middleware.Timeout(requestTimeout),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, limiter, authMiddleware, logger)
		})
		r.Route("/tasks", func(r chi.Router) {
			handlers.TaskRouter(r, taskService, authMiddleware, logger)
		})
		r.Route("/pomodoro", func(r chi.Router) {
			handlers.PomodoroRouter(r, pomodoroService, authMiddleware, logger)
		})
	})

	s.router = router
	s.httpServer = newHTTPServer(cfg.ServerPort, router)
	return s, nil
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	if port == 0 {
		port = 8080
	}
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// userTx adapts the repository transaction helper to the service's
// repository interface.
func userTx(repo *store.UserRepository) services.UserTxRunner {
	return func(ctx context.Context, fn func(services.UserRepository) error) error {
		return repo.RunInTx(ctx, func(tx *store.UserRepository) error {
			return fn(tx)
		})
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and then closes the database, queue
// and redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.close())
}

func (s *Server) close() error {
	var errs []error
	if s.queue != nil {
		errs = append(errs, s.queue.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
