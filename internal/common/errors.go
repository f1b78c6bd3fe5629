// Package common defines shared constants and sentinel errors used across
// the idverifier server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	ErrStoreUnavailable = errors.New("credential store unavailable")

	// Input validation.
	ErrInvalidInput = errors.New("invalid input")

	// Auth workflow errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameReserved   = errors.New("username is reserved")
	ErrUsernameTaken      = errors.New("username already exists")

	// Token errors (invalid signature, malformed or expired).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Document verification errors.
	ErrDocumentRejected    = errors.New("document rejected")
	ErrProviderUnavailable = errors.New("verification provider unavailable")
)
