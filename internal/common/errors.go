// Package common defines shared constants and sentinel errors used across
// the auth subsystem. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrConflict signals a lost identity-resolution race: a unique
	// constraint rejected an insert because a concurrent request created
	// the row first. Safe to retry.
	ErrConflict = errors.New("conflict")

	// ErrNoSecretKey means no JWT signing secret was configured. Fatal to
	// any mint or verify call.
	ErrNoSecretKey = errors.New("signing secret is not configured")

	// Access-token errors (invalid or malformed credential).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Refresh-token lifecycle errors.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
