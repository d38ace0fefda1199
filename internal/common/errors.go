// Package common defines shared constants and sentinel errors used across
// the contactbook server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Account errors.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotVerified = errors.New("email not verified")
	ErrWeakPassword       = errors.New("password does not meet requirements")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenAlreadyUsed    = errors.New("token already used")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Avatar upload errors.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrUploadFailed         = errors.New("upload failed")
)
