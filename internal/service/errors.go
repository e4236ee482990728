package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidCarID is returned when car ID is empty.
	ErrInvalidCarID = errors.New("invalid car id")

	// ErrInvalidExtensionHours is returned when requested hours are not positive.
	ErrInvalidExtensionHours = errors.New("extension hours must be positive")

	// ErrBookingNotActive is returned when an extension targets a booking
	// that is not in ACTIVE state.
	ErrBookingNotActive = errors.New("booking not found or not active")

	// ErrOnlyDayBookingsExtendable is returned for extension attempts on
	// non-DAY bookings.
	ErrOnlyDayBookingsExtendable = errors.New("only DAY bookings can be extended")

	// ErrBookingLegNotFound is returned when a booking has no legs.
	ErrBookingLegNotFound = errors.New("booking leg not found")

	// ErrExtensionConflict is returned when the merge target was confirmed
	// by a concurrent writer between read and update.
	ErrExtensionConflict = errors.New("extension was modified concurrently, retry")

	// ErrBookingNotCancellable is returned when a booking is already
	// completed or cancelled.
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled in current state")

	// ErrCarNotAvailable is the generic conflict returned to callers when a
	// car cannot serve the requested window. Conflict details are logged,
	// never returned, so one customer's booking data does not leak to another.
	ErrCarNotAvailable = errors.New("car is not available for the requested period")
)

// FieldError is a single field-level rule violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every rule violation found in one pass. Rules
// are never short-circuited: the caller sees all problems at once.
type ValidationError struct {
	Violations []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ExtensionTooLongError is returned when a requested extension would push a
// leg's end time past its midnight boundary.
type ExtensionTooLongError struct {
	RemainingHours int
}

func (e *ExtensionTooLongError) Error() string {
	return fmt.Sprintf("extension exceeds the leg's midnight boundary: only %d hour(s) remain before midnight", e.RemainingHours)
}
