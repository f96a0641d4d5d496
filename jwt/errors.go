package jwt

import "errors"

var (
	// ErrExpiredToken is returned when a token is past its expiry (after leeway).
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidSignature is returned when the signature does not match the
	// configured secret, or the token was not issued by this manager for the
	// requested kind.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrMalformed is returned when the token is not a structurally valid JWT.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidConfig reports a rejected Manager configuration.
	ErrInvalidConfig = errors.New("invalid jwt configuration")
)
