package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/focusboard/apiserver/internal/apperr"
	"github.com/focusboard/apiserver/internal/store"
	"github.com/focusboard/apiserver/types"
)

// TokenVerifier verifies access tokens.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// UserFinder loads users by ID.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
}

// Resolver maps a bearer token to an active user.
type Resolver struct {
	tokens TokenVerifier
	users  UserFinder
}

func NewResolver(tokens TokenVerifier, users UserFinder) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve returns the active user identified by token. It fails with
// apperr.ErrNotAuthenticated for a missing, invalid or orphaned token and
// with apperr.ErrAccountInactive for a disabled account. Store failures
// other than not-found are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, token string) (types.User, error) {
	if strings.TrimSpace(token) == "" {
		return types.User{}, apperr.ErrNotAuthenticated
	}

	claims, err := r.tokens.Verify(token)
	if err != nil {
		return types.User{}, apperr.ErrNotAuthenticated
	}
	if claims.UserID < 1 {
		return types.User{}, apperr.ErrNotAuthenticated
	}

	user, err := r.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.ErrNotAuthenticated
		}
		return types.User{}, fmt.Errorf("resolve user %d: %w", claims.UserID, err)
	}

	if !user.IsActive {
		return types.User{}, apperr.ErrAccountInactive
	}
	return user, nil
}
