/*
errors.go - Centralized error taxonomy for the center domain

PURPOSE:
  All domain error kinds in one place. Callers classify with errors.Is or the
  helpers below; the HTTP layer maps them to status codes (404/409/400/500).

ERROR CATEGORIES:
  1. NotFound        - a referenced teacher/group/student/enrollment is missing
  2. Conflict        - duplicate active enrollment, deleting a teacher with groups
  3. InvalidArgument - month outside 1-12, malformed date components

USAGE:
    if center.IsNotFound(err) { ... 404 ... }

SEE ALSO:
  - api/handlers.go: HTTP status mapping
*/
package center

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation violates a uniqueness or
	// ownership rule (duplicate active enrollment, teacher still owns groups).
	ErrConflict = errors.New("conflict")

	// ErrInvalidArgument is returned for malformed input such as a month
	// outside 1-12 or an impossible calendar date.
	ErrInvalidArgument = errors.New("invalid argument")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Entity string // "Teacher", "Group", "Student", "Enrollment", ...
	ID     int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s not found with id: %d", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError describes a business-rule conflict.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InvalidArgumentError describes rejected input.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string { return e.Reason }

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool        { return errors.Is(err, ErrConflict) }
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }
