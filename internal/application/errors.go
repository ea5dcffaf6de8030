package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the meeting is not active or not scheduled.
	ErrNotFound = errors.New("application: not found")
	// ErrForbidden is returned when the email is not allowed to act on the meeting.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotJoined is returned by Leave when the email is not currently joined.
	ErrNotJoined = errors.New("application: participant not joined")
	// ErrAlreadyExists is returned when a meeting id is already scheduled.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidMessage is returned when a chat message has no body.
	ErrInvalidMessage = errors.New("application: invalid chat message")
	// ErrConflict is returned when concurrent writers exhausted the cache's retries.
	ErrConflict = errors.New("application: concurrent modification")
	// ErrUnavailable wraps failures of the durable store or cache backend.
	ErrUnavailable = errors.New("application: backend unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
