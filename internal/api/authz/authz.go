package authz

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// AuthUser is the local account behind a verified bearer token.
type AuthUser struct {
	ID      int64
	AuthID  string
	Email   string
	Name    string
	IsAdmin bool
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// IsAdmin reports whether user is non-nil and flagged as an administrator.
func IsAdmin(user *AuthUser) bool {
	return user != nil && user.IsAdmin
}

// RequireUser returns the authenticated user or ErrUnauthenticated.
func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireAdmin returns the authenticated user when it is an administrator.
func RequireAdmin(ctx context.Context) (*AuthUser, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, ErrForbidden
	}
	return user, nil
}

// RequireOwner allows only the owner of a record. Administrators are not exempt.
func RequireOwner(ctx context.Context, ownerID int64) (*AuthUser, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if user.ID != ownerID {
		return nil, ErrForbidden
	}
	return user, nil
}
