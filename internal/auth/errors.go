package auth

import "errors"

var (
	// ErrUnauthenticated covers every failed identity resolution: bad or
	// expired token, unknown subject, deactivated actor. Callers receive it
	// as a single opaque outcome; the specific cause stays in logs.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden means the identity is valid but the role is insufficient.
	ErrForbidden = errors.New("auth: forbidden")

	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
)

// Token verification failure kinds. All three collapse to ErrUnauthenticated
// at the boundary; they are distinguished for diagnostics only.
var (
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	ErrExpired          = errors.New("auth: token expired")
	ErrMalformedClaims  = errors.New("auth: malformed token claims")
)
