package goSession

import (
	"context"
	"time"
)

// User is the directory record the engine authenticates against. The engine
// never mutates it.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	EmailVerified bool
}

// UserDirectory looks up and authenticates users. FindUserByEmail returns
// ErrUserNotFound (or an error wrapping it) for unknown emails; any other
// error is treated as an outage.
type UserDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (User, error)
	VerifyCredential(ctx context.Context, user User, password string) (bool, error)
}

// TokenPair is a freshly issued access/refresh pair. The refresh session
// behind RefreshToken is already persisted when a TokenPair is returned.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login].
//
// ClearRefreshCookie is set whenever the request presented a refresh cookie;
// the caller replaces it with RefreshToken. An adapter that stores
// RefreshToken under the same cookie name satisfies it by setting the new
// cookie.
type LoginResult struct {
	TokenPair
	UserID             string
	ClearRefreshCookie bool
}

// LogoutResult is returned by [Engine.Logout].
type LogoutResult struct {
	ClearRefreshCookie bool
}

// AuthResult is returned by [Engine.ValidateAccess].
type AuthResult struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}
