package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/academy-timetable/internal/timeclock"
)

var (
	// ErrUnauthorized is returned when the requesting owner may not act on a resource.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict matches every *ConflictError.
	ErrConflict = errors.New("application: schedule conflict")
	// ErrInvalidDuration matches every *InvalidDurationError.
	ErrInvalidDuration = errors.New("application: invalid duration")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("application: persistence failure")
	// ErrProposalInProgress is returned when a gesture is already open for the owner.
	ErrProposalInProgress = errors.New("application: proposal already in progress")
	// ErrNoProposal is returned when committing or updating without an open gesture.
	ErrNoProposal = errors.New("application: no proposal in progress")
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
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ConflictError reports a placement that overlaps existing sessions of the
// same owner on the same weekday.
type ConflictError struct {
	Candidate ClassSession
	With      []string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("session %s-%s on weekday %d conflicts with %s",
		timeclock.FormatClock(e.Candidate.StartMinute),
		timeclock.FormatClock(e.Candidate.EndMinute),
		e.Candidate.Weekday,
		strings.Join(e.With, ", "))
}

// Is lets errors.Is match ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidDurationError reports an interval that ends before it starts or is
// shorter than the minimum duration.
type InvalidDurationError struct {
	StartMinute int
	EndMinute   int
	Minimum     int
}

// Error implements the error interface.
func (e *InvalidDurationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("session %s-%s must last at least %d minutes",
		timeclock.FormatClock(e.StartMinute),
		timeclock.FormatClock(e.EndMinute),
		e.Minimum)
}

// Is lets errors.Is match ErrInvalidDuration.
func (e *InvalidDurationError) Is(target error) bool {
	return target == ErrInvalidDuration
}

// PersistenceError reports a store failure after an optimistic update was
// applied. The local view has already been resynchronized when ResyncErr is nil.
type PersistenceError struct {
	Op        string
	OwnerID   string
	Err       error
	ResyncErr error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s for owner %s failed to persist: %v", e.Op, e.OwnerID, e.Err)
	if e.ResyncErr != nil {
		msg += fmt.Sprintf(" (resync failed: %v)", e.ResyncErr)
	}
	return msg
}

// Unwrap exposes the underlying store error.
func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
