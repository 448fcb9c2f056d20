package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/api/authz"
	"github.com/codr1/leaguehub/internal/db"
)

var (
	ErrMissingToken        = errors.New("missing bearer token")
	ErrInvalidToken        = errors.New("invalid session token")
	ErrUserNotFound        = errors.New("user not found")
	ErrProviderUnavailable = errors.New("auth provider not configured")
)

// TokenVerifier checks a session token and returns the provider user id.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Directory reads a user's profile from the auth provider.
type Directory interface {
	Lookup(ctx context.Context, authID string) (Profile, error)
}

type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

// UserStore is the subset of *db.Queries the authenticator needs.
type UserStore interface {
	GetUserByAuthID(ctx context.Context, authID string) (db.User, error)
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
}

// Authenticator resolves a bearer token to the local account, provisioning
// the account on first sight from the provider profile.
type Authenticator struct {
	verifier  TokenVerifier
	directory Directory
	users     UserStore
}

func NewAuthenticator(verifier TokenVerifier, directory Directory, users UserStore) *Authenticator {
	return &Authenticator{
		verifier:  verifier,
		directory: directory,
		users:     users,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Authenticate verifies the request's bearer token and returns the local user.
// Token problems wrap authz.ErrUnauthenticated; an account unknown to both the
// store and the provider returns ErrUserNotFound.
func (a *Authenticator) Authenticate(r *http.Request) (*authz.AuthUser, error) {
	ctx := r.Context()

	token, err := BearerToken(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authz.ErrUnauthenticated, err)
	}

	authID, err := a.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", authz.ErrUnauthenticated, err)
	}

	localUser, err := a.users.GetUserByAuthID(ctx, authID)
	if err == nil {
		return ToAuthUser(localUser), nil
	}
	if !db.IsNotFound(err) {
		return nil, fmt.Errorf("load user %s: %w", authID, err)
	}

	localUser, err = a.provision(ctx, authID)
	if err != nil {
		return nil, err
	}
	return ToAuthUser(localUser), nil
}

func (a *Authenticator) provision(ctx context.Context, authID string) (db.User, error) {
	if a.directory == nil {
		return db.User{}, ErrUserNotFound
	}

	profile, err := a.directory.Lookup(ctx, authID)
	if err != nil {
		return db.User{}, err
	}
	if profile.Email == "" {
		return db.User{}, fmt.Errorf("%w: provider profile has no email", ErrUserNotFound)
	}

	created, err := a.users.CreateUser(ctx, db.CreateUserParams{
		AuthID:    authID,
		Email:     strings.ToLower(profile.Email),
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	})
	if err != nil {
		// A concurrent request may have provisioned the same account.
		if existing, getErr := a.users.GetUserByAuthID(ctx, authID); getErr == nil {
			return existing, nil
		}
		return db.User{}, fmt.Errorf("create user %s: %w", authID, err)
	}

	log.Ctx(ctx).Info().
		Int64("user_id", created.ID).
		Str("auth_id", authID).
		Msg("Provisioned local account")
	return created, nil
}

func ToAuthUser(u db.User) *authz.AuthUser {
	return &authz.AuthUser{
		ID:      u.ID,
		AuthID:  u.AuthID,
		Email:   u.Email,
		Name:    u.FullName(),
		IsAdmin: u.IsAdmin,
	}
}
