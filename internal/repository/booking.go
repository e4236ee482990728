package repository

import (
	"context"
	"time"

	"hyre/internal/domain"
)

// OverlapFilter describes the conflict query used by the availability
// checker: bookings on the same car, in the given statuses, paid, whose
// interval overlaps [WindowStart, WindowEnd) with strict inequalities.
type OverlapFilter struct {
	CarID            string
	WindowStart      time.Time
	WindowEnd        time.Time
	Statuses         []domain.BookingStatus
	PaymentStatus    domain.PaymentStatus
	ExcludeBookingID string
}

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetByReference retrieves a booking by its unique booking reference.
	// Returns nil if no booking carries the reference.
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)

	// GetAll retrieves recent bookings.
	GetAll(ctx context.Context) ([]*domain.Booking, error)

	// FindOverlapping returns bookings matching the overlap filter.
	FindOverlapping(ctx context.Context, filter OverlapFilter) ([]*domain.Booking, error)

	// UpdateStatusIf flips status/paymentStatus only while the booking is
	// still in the expected current state. Returns false when the guard
	// did not match (already transitioned by a concurrent writer).
	UpdateStatusIf(ctx context.Context, id string, from domain.BookingStatus, to domain.BookingStatus, paymentStatus domain.PaymentStatus) (bool, error)

	// Cancel soft-cancels a booking still in a cancellable state.
	Cancel(ctx context.Context, id string, reason string, at time.Time) (bool, error)

	// ActivateDue bulk-updates CONFIRMED+PAID bookings whose start date has
	// passed to ACTIVE and returns the transitioned bookings.
	ActivateDue(ctx context.Context, now time.Time) ([]*domain.Booking, error)

	// CompleteDue bulk-updates ACTIVE+PAID bookings whose effective end
	// (latest ACTIVE+PAID extension end across legs, else the booking's own
	// end date) has passed to COMPLETED and returns the transitioned bookings.
	CompleteDue(ctx context.Context, now time.Time) ([]*domain.Booking, error)
}

// BookingLegRepository defines the persistence operations for booking legs.
type BookingLegRepository interface {
	// Create persists a new leg.
	Create(ctx context.Context, leg *domain.BookingLeg) error

	// GetByBookingID retrieves all legs of a booking ordered by leg date.
	GetByBookingID(ctx context.Context, bookingID string) ([]*domain.BookingLeg, error)
}
