// Package apperror holds the business outcomes returned by the booking core.
// Each error type matches its sentinel through errors.Is, so callers can
// branch with errors.Is and read details with errors.As.
package apperror

import (
	"errors"
	"fmt"
	"time"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyBooked     = errors.New("already booked")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrTooLateToCancel   = errors.New("too late to cancel")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotPermitted      = errors.New("not permitted")
	ErrLocationInUse     = errors.New("location in use")
	ErrPersistence       = errors.New("persistence failure")
)

// ValidationError reports malformed input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidation builds a ValidationError
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing volunteer, location, slot or booking
type NotFoundError struct {
	Kind string // "volunteer", "location", "slot", "booking"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyBookedError is returned when the volunteer already holds an active
// booking for the exact location/date/slot
type AlreadyBookedError struct {
	Existing model.Booking
}

func (e *AlreadyBookedError) Error() string {
	return fmt.Sprintf("volunteer %s already booked into %s on %s (%s), booking %s",
		e.Existing.VolunteerID, e.Existing.LocationID, e.Existing.Date, e.Existing.SlotID, e.Existing.ID)
}

func (e *AlreadyBookedError) Is(target error) bool { return target == ErrAlreadyBooked }

// CapacityExceededError is returned when a slot has no room left
type CapacityExceededError struct {
	LocationID string
	Date       string
	SlotID     string
	Capacity   int
	Active     int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("slot %s at %s on %s is full (%d/%d)", e.SlotID, e.LocationID, e.Date, e.Active, e.Capacity)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }

// TooLateToCancelError is returned when a volunteer cancels inside the cancellation window
type TooLateToCancelError struct {
	BookingID string
	SlotStart time.Time
	Now       time.Time
	Window    time.Duration
}

func (e *TooLateToCancelError) Error() string {
	return fmt.Sprintf("booking %s starts at %s; cancellations close %s before the start",
		e.BookingID, e.SlotStart.Format(time.RFC3339), e.Window)
}

func (e *TooLateToCancelError) Is(target error) bool { return target == ErrTooLateToCancel }

// InvalidTransitionError is returned when a status change is not in the transition table
type InvalidTransitionError struct {
	BookingID string
	From      model.Status
	To        model.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %s cannot move from %s to %s", e.BookingID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// NotPermittedError is returned when the actor may not perform the operation
type NotPermittedError struct {
	Actor     model.Actor
	Operation string
}

func (e *NotPermittedError) Error() string {
	return fmt.Sprintf("%s may not %s", e.Actor, e.Operation)
}

func (e *NotPermittedError) Is(target error) bool { return target == ErrNotPermitted }

// LocationInUseError is returned when deleting a location that bookings still reference
type LocationInUseError struct {
	LocationID string
	Bookings   int
}

func (e *LocationInUseError) Error() string {
	return fmt.Sprintf("location %s is referenced by %d bookings", e.LocationID, e.Bookings)
}

func (e *LocationInUseError) Is(target error) bool { return target == ErrLocationInUse }

// PersistenceError wraps a storage failure. It is never retried by the core.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence wraps err unless it is nil
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsBusinessOutcome reports whether err is an expected outcome the caller
// should surface rather than an infrastructure failure
func IsBusinessOutcome(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrNotFound, ErrAlreadyBooked, ErrCapacityExceeded,
		ErrTooLateToCancel, ErrInvalidTransition, ErrNotPermitted, ErrLocationInUse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
