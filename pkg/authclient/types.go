// Package authclient keeps a client-side session for the auth API: it stores
// the token pair durably, tells whether the session is still valid and
// refreshes it shortly before the access token expires.
package authclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User mirrors the public user returned by the server.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthResult is the body of register, login and refresh responses.
type AuthResult struct {
	User         User   `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// AuthUser is the persisted session.
type AuthUser struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrMalformedToken = errors.New("access token has no readable exp claim")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status    int               `json:"status"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api: %d %s", e.Status, e.Message)
}

// tokenExpiry reads exp without verifying the signature; the client has no
// key and only needs to know when to refresh.
func tokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrMalformedToken
	}
	return claims.ExpiresAt.Time, nil
}

func sessionFrom(res *AuthResult) (*AuthUser, error) {
	exp, err := tokenExpiry(res.Token)
	if err != nil {
		return nil, err
	}
	return &AuthUser{
		User:         res.User,
		AccessToken:  res.Token,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    exp,
	}, nil
}
