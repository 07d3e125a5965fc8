package domain

import (
	"errors"
	"net/http"
)

// Error kinds. Services return them wrapped in an *AppError so the message
// shown to the client can differ per call site while errors.Is still works.
var (
	ErrBadInput              = errors.New("bad input")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("access forbidden")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserExists            = errors.New("user already exists")
	ErrInvalidOrExpiredToken = errors.New("token is invalid or has expired")
	ErrDeliveryFailed        = errors.New("email delivery failed")
	ErrTooManyRequests       = errors.New("too many requests")
	ErrInternal              = errors.New("internal error")
)

var statusByKind = map[error]int{
	ErrBadInput:              http.StatusBadRequest,
	ErrInvalidCredentials:    http.StatusUnauthorized,
	ErrUnauthenticated:       http.StatusUnauthorized,
	ErrForbidden:             http.StatusForbidden,
	ErrUserNotFound:          http.StatusNotFound,
	ErrUserExists:            http.StatusConflict,
	ErrInvalidOrExpiredToken: http.StatusBadRequest,
	ErrDeliveryFailed:        http.StatusInternalServerError,
	ErrTooManyRequests:       http.StatusTooManyRequests,
	ErrInternal:              http.StatusInternalServerError,
}

// AppError is an operational error that is safe to show to the client.
type AppError struct {
	Kind    error
	Message string
	Status  int
}

// NewAppError builds an AppError whose status code is derived from kind.
// Unknown kinds map to 500.
func NewAppError(kind error, message string) *AppError {
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = kind.Error()
	}
	return &AppError{Kind: kind, Message: message, Status: status}
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Kind }

// StatusCode returns the HTTP status that err maps to.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for kind, status := range statusByKind {
		if errors.Is(err, kind) {
			return status
		}
	}
	return http.StatusInternalServerError
}
