package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// PaymentStatus represents whether an entity has been paid for.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// BookingType represents the kind of chauffeur service booked.
type BookingType string

const (
	BookingTypeDay           BookingType = "DAY"
	BookingTypeNight         BookingType = "NIGHT"
	BookingTypeAirportPickup BookingType = "AIRPORT_PICKUP"
)

// Booking represents a vehicle-with-chauffeur reservation.
// Bookings are never deleted; cancellation is a status change.
type Booking struct {
	ID               string
	CarID            string
	UserID           string // empty for guest bookings
	ChauffeurID      string
	Status           BookingStatus
	PaymentStatus    PaymentStatus
	Type             BookingType
	StartDate        time.Time
	EndDate          time.Time
	BookingReference string // unique, doubles as the payment tx_ref
	TotalAmount      float64
	CreatedAt        time.Time
	CancelledAt      time.Time
	CancelReason     string
}

// BookingLeg is one calendar-day segment of a booking. Legs of the same
// booking never overlap.
type BookingLeg struct {
	ID           string
	BookingID    string
	LegDate      time.Time // midnight of the leg's calendar day
	LegStartTime time.Time
	LegEndTime   time.Time
}

// MidnightBoundary returns the first instant of the day after the leg's
// calendar date. An extension's end time may never cross it.
func (l *BookingLeg) MidnightBoundary() time.Time {
	d := l.LegDate
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()).AddDate(0, 0, 1)
}

// IsCancellable reports whether the booking can still be soft-cancelled.
func (b *Booking) IsCancellable() bool {
	switch b.Status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusActive:
		return true
	}
	return false
}
