package auth

import "errors"

var (
	// ErrTokenExpired is returned when a bearer token has expired.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken is returned when a bearer token fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingToken is returned when no Authorization header was presented.
	ErrMissingToken = errors.New("missing bearer token")
)
