// Package apperr defines the failure taxonomy shared by the auth,
// service and handler layers.
//
// Each concrete error carries a message that is safe to show to the
// client and unwraps to exactly one kind, so callers can branch with
// errors.Is on either the concrete error or its kind.
package apperr

import "errors"

// Kinds.
var (
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrInternal          = errors.New("internal error")
)

// Error is a domain failure of a given kind.
type Error struct {
	kind    error
	message string
}

// New returns an error of the given kind with a client-safe message.
func New(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Kind returns the taxonomy kind of e.
func (e *Error) Kind() error {
	return e.kind
}

// Validation returns a validation error with the given message.
func Validation(message string) *Error {
	return New(ErrValidation, message)
}

// Registration and login.
var (
	ErrEmailRegistered    = New(ErrConflict, "email already registered")
	ErrUsernameTaken      = New(ErrConflict, "username taken")
	ErrInvalidCredentials = New(ErrUnauthorized, "incorrect username or password")
	ErrNotAuthenticated   = New(ErrUnauthorized, "could not validate credentials")
	ErrAccountInactive    = New(ErrForbidden, "account inactive")
	ErrHashVerification   = New(ErrInternal, "hash verification failed")
)

// Pomodoro session transitions.
var (
	ErrSessionNotFound         = New(ErrNotFound, "pomodoro session not found")
	ErrSessionAlreadyStarted   = New(ErrInvalidTransition, "session already started")
	ErrSessionNotStarted       = New(ErrInvalidTransition, "session not started")
	ErrSessionAlreadyCompleted = New(ErrInvalidTransition, "session already completed")
)

// ErrTaskNotFound is returned when a task does not exist for the caller.
var ErrTaskNotFound = New(ErrNotFound, "task not found")

// Message returns the client-safe message of err when it is a domain
// error, or fallback otherwise.
func Message(err error, fallback string) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.message
	}
	return fallback
}
