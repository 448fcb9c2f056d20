package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/rs/zerolog/log"
)

// clerkInitialized indicates whether the Clerk SDK has been initialized
var clerkInitialized bool

// InitClerk initializes Clerk SDK with the secret key
func InitClerk(secretKey string) bool {
	if secretKey == "" {
		log.Warn().Msg("Clerk secret key not configured")
		return false
	}
	clerk.SetKey(secretKey)
	clerkInitialized = true
	log.Info().Msg("Clerk SDK initialized")
	return true
}

// ClerkProvider verifies Clerk session JWTs and reads user profiles from the
// Clerk backend API.
type ClerkProvider struct{}

var (
	_ TokenVerifier = ClerkProvider{}
	_ Directory     = ClerkProvider{}
)

func (ClerkProvider) Verify(ctx context.Context, token string) (string, error) {
	if !clerkInitialized {
		return "", ErrProviderUnavailable
	}
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (ClerkProvider) Lookup(ctx context.Context, authID string) (Profile, error) {
	if !clerkInitialized {
		return Profile{}, ErrProviderUnavailable
	}
	clerkUser, err := user.Get(ctx, authID)
	if err != nil {
		var apiErr *clerk.APIErrorResponse
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
			return Profile{}, ErrUserNotFound
		}
		return Profile{}, fmt.Errorf("get clerk user %s: %w", authID, err)
	}
	return profileFromClerk(clerkUser), nil
}

// profileFromClerk prefers the primary email address and falls back to the
// first address on file.
func profileFromClerk(clerkUser *clerk.User) Profile {
	var profile Profile
	if clerkUser.FirstName != nil {
		profile.FirstName = *clerkUser.FirstName
	}
	if clerkUser.LastName != nil {
		profile.LastName = *clerkUser.LastName
	}

	if clerkUser.PrimaryEmailAddressID != nil {
		for _, email := range clerkUser.EmailAddresses {
			if email != nil && email.ID == *clerkUser.PrimaryEmailAddressID {
				profile.Email = email.EmailAddress
				return profile
			}
		}
	}
	for _, email := range clerkUser.EmailAddresses {
		if email != nil && email.EmailAddress != "" {
			profile.Email = email.EmailAddress
			break
		}
	}
	return profile
}
