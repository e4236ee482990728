package service

import (
	"time"

	"hyre/internal/domain"
)

// Clock returns the current time. Injected so time-dependent rules are
// testable against a fixed instant.
type Clock func() time.Time

// DateValidator applies the stateless business rules on a proposed booking
// window. It never returns a Go error: every violated rule is collected and
// reported in a single pass.
type DateValidator struct {
	sameDayCutoffHour int
	now               Clock
}

// NewDateValidator creates a new DateValidator. cutoffHour is the hour of
// day (24h clock) after which same-day DAY bookings are rejected.
func NewDateValidator(cutoffHour int, now Clock) *DateValidator {
	if now == nil {
		now = time.Now
	}
	return &DateValidator{sameDayCutoffHour: cutoffHour, now: now}
}

// ValidationResult is the outcome of validating a booking window.
type ValidationResult struct {
	Valid  bool
	Errors []FieldError
}

// Err converts the result into a *ValidationError, or nil when valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Violations: r.Errors}
}

// ValidateDates checks a proposed booking window against every date rule.
// All rules are evaluated; violations accumulate instead of short-circuiting.
func (v *DateValidator) ValidateDates(start, end time.Time, bookingType domain.BookingType) ValidationResult {
	now := v.now()
	var violations []FieldError

	if end.Before(start) {
		violations = append(violations, FieldError{
			Field:   "endDate",
			Message: "end date must not be before start date",
		})
	}

	if bookingType == domain.BookingTypeAirportPickup {
		if start.Before(now.Add(time.Hour)) {
			violations = append(violations, FieldError{
				Field:   "startDate",
				Message: "airport pickups must be booked at least 1 hour in advance",
			})
		}
	} else if start.Before(now) {
		violations = append(violations, FieldError{
			Field:   "startDate",
			Message: "start date cannot be in the past",
		})
	}

	if bookingType == domain.BookingTypeDay && isSameDay(start, now) && now.Hour() >= v.sameDayCutoffHour {
		violations = append(violations, FieldError{
			Field:   "startDate",
			Message: "same-day bookings are no longer accepted for today",
		})
	}

	return ValidationResult{Valid: len(violations) == 0, Errors: violations}
}

func isSameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
