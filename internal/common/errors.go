// Package common defines shared constants, domain enumerations and sentinel
// errors used across device and server layers. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Matching errors.
	ErrAlreadyMatched = errors.New("passage already matched")
	ErrInvalidPair    = errors.New("invalid passage pair")

	// Validation errors.
	ErrInvalidPassage = errors.New("invalid passage")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
