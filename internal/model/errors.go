package model

import (
	"errors"
	"fmt"
)

// Lifecycle errors. Callers compare with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrNotVerified     = fmt.Errorf("agent is not verified: %w", ErrForbidden)
	ErrAlreadyAccepted = fmt.Errorf("pickup already accepted: %w", ErrForbidden)
	ErrNotAssigned     = fmt.Errorf("pickup is assigned to another agent: %w", ErrForbidden)
)

// Error codes carried in API error bodies.
const (
	CodeNotFound          = "not_found"
	CodeForbidden         = "forbidden"
	CodeNotVerified       = "not_verified"
	CodeAlreadyAccepted   = "already_accepted"
	CodeNotAssigned       = "not_assigned"
	CodeInvalidTransition = "invalid_transition"
	CodeBadRequest        = "bad_request"
	CodeConflict          = "conflict"
	CodeUnauthorized      = "unauthorized"
	CodeInternal          = "internal"
)

// ErrorCode returns the API code for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotVerified):
		return CodeNotVerified
	case errors.Is(err, ErrAlreadyAccepted):
		return CodeAlreadyAccepted
	case errors.Is(err, ErrNotAssigned):
		return CodeNotAssigned
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	}
	return CodeInternal
}

// ErrorFromCode maps an API code back to its sentinel error, or nil.
func ErrorFromCode(code string) error {
	switch code {
	case CodeNotVerified:
		return ErrNotVerified
	case CodeAlreadyAccepted:
		return ErrAlreadyAccepted
	case CodeNotAssigned:
		return ErrNotAssigned
	case CodeForbidden:
		return ErrForbidden
	case CodeNotFound:
		return ErrNotFound
	case CodeInvalidTransition:
		return ErrInvalidTransition
	}
	return nil
}
