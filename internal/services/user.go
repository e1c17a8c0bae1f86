package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/focusboard/apiserver/internal/apperr"
	"github.com/focusboard/apiserver/internal/store"
	"github.com/focusboard/apiserver/types"
)

const (
	minPasswordLength = 6
	minUsernameLength = 3
	maxUsernameLength = 100
	maxEmailLength    = 255

	tokenTypeBearer = "bearer"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByLogin(ctx context.Context, identifier string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserTxRunner runs fn against a repository bound to one transaction,
// committing when fn returns nil and rolling back otherwise.
type UserTxRunner func(ctx context.Context, fn func(repo UserRepository) error) error

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	VerifyDummy(password string) bool
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID int64, username string, ttl time.Duration) (string, time.Time, error)
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in *RegisterInput) normalize() {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
}

func (in RegisterInput) validate() error {
	if in.Email == "" || len(in.Email) > maxEmailLength {
		return apperr.Validation("a valid email is required")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return apperr.Validation("a valid email is required")
	}
	if n := utf8.RuneCountInString(in.Username); n < minUsernameLength || n > maxUsernameLength {
		return apperr.Validation(fmt.Sprintf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

// UserOption configures a UserService.
type UserOption func(*UserService)

// WithUserTx makes registration run inside the given transaction runner.
func WithUserTx(runner UserTxRunner) UserOption {
	return func(s *UserService) { s.runTx = runner }
}

// WithUserEvents publishes user events through publisher.
func WithUserEvents(publisher EventPublisher) UserOption {
	return func(s *UserService) { s.events = publisher }
}

// WithUserLogger replaces the default logger.
func WithUserLogger(logger *slog.Logger) UserOption {
	return func(s *UserService) { s.logger = logger }
}

// UserService encapsulates registration and login.
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	runTx  UserTxRunner
	events EventPublisher
	logger *slog.Logger
}

func NewUserService(repo UserRepository, hasher PasswordHasher, tokens TokenIssuer, opts ...UserOption) *UserService {
	s := &UserService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register creates an active account. Either the account is fully
// created with a verifiable hash or nothing is left behind.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return types.User{}, err
	}

	var (
		user types.User
		err  error
	)
	if s.runTx != nil {
		err = s.runTx(ctx, func(repo UserRepository) error {
			created, err := s.createUser(ctx, repo, in)
			if err != nil {
				return err
			}
			if !s.hasher.Verify(in.Password, created.PasswordHash) {
				return apperr.ErrHashVerification
			}
			user = created
			return nil
		})
	} else {
		user, err = s.registerWithCompensation(ctx, in)
	}
	if err != nil {
		return types.User{}, err
	}

	publishEvent(ctx, s.events, s.logger, types.Event{
		Type:       types.EventUserRegistered,
		UserID:     user.ID,
		OccurredAt: user.CreatedAt,
	})
	return user, nil
}

func (s *UserService) registerWithCompensation(ctx context.Context, in RegisterInput) (types.User, error) {
	user, err := s.createUser(ctx, s.repo, in)
	if err != nil {
		return types.User{}, err
	}
	if s.hasher.Verify(in.Password, user.PasswordHash) {
		return user, nil
	}

	if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
		s.logger.ErrorContext(ctx, "failed to remove user after hash verification failure",
			slog.Int64("user_id", user.ID),
			slog.String("error", delErr.Error()),
		)
	}
	return types.User{}, apperr.ErrHashVerification
}

func (s *UserService) createUser(ctx context.Context, repo UserRepository, in RegisterInput) (types.User, error) {
	if _, err := repo.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, apperr.ErrEmailRegistered
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("lookup email: %w", err)
	}

	if _, err := repo.GetByUsername(ctx, in.Username); err == nil {
		return types.User{}, apperr.ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := repo.Create(ctx, types.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		if constraint, ok := store.UniqueViolation(err); ok {
			return types.User{}, conflictForConstraint(constraint)
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func conflictForConstraint(constraint string) error {
	switch {
	case strings.Contains(constraint, "email"):
		return apperr.ErrEmailRegistered
	case strings.Contains(constraint, "username"):
		return apperr.ErrUsernameTaken
	default:
		return apperr.New(apperr.ErrConflict, "account already exists")
	}
}

// Login checks credentials and issues an access token. identifier may be
// a username or an email address.
func (s *UserService) Login(ctx context.Context, identifier, password string) (types.AccessToken, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return types.AccessToken{}, apperr.ErrInvalidCredentials
	}

	user, err := s.repo.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return types.AccessToken{}, apperr.ErrInvalidCredentials
		}
		return types.AccessToken{}, fmt.Errorf("lookup login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return types.AccessToken{}, apperr.ErrInvalidCredentials
	}
	if !user.IsActive {
		return types.AccessToken{}, apperr.ErrAccountInactive
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, 0)
	if err != nil {
		return types.AccessToken{}, err
	}
	return types.AccessToken{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}
