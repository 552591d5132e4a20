package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrTransient marks store failures that a caller may retry with a bound.
	ErrTransient = errors.New("store temporarily unavailable")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorConflict     = errors.New("conflict")
	ErrorValidation   = errors.New("validation error")
	ErrorForbidden    = errors.New("forbidden")

	// Circulation errors.
	ErrAlreadyLoaned = &wrapped{msg: "copy is already loaned", base: ErrorConflict}

	// Auth errors.
	ErrorInvalidCredentials = &wrapped{msg: "invalid credentials", base: ErrorUnauthorized}
	ErrInvalidToken         = errors.New("invalid token")
	ErrEmptyClaims          = errors.New("claims must not be empty")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = &wrapped{msg: "refresh token expired", base: ErrorUnauthorized}
)

// wrapped is a sentinel that also matches a broader category via errors.Is.
type wrapped struct {
	msg  string
	base error
}

func (e *wrapped) Error() string { return e.msg }

func (e *wrapped) Unwrap() error { return e.base }
