package service

import (
	"context"
	"errors"
	"log"
	"time"

	"hyre/internal/domain"
	"hyre/internal/repository"
)

// AvailabilityService decides whether a car is actually free for a requested
// window, including the turnaround buffer on both sides.
type AvailabilityService struct {
	carRepo     repository.CarRepository
	bookingRepo repository.BookingRepository
	bufferHours int
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(carRepo repository.CarRepository, bookingRepo repository.BookingRepository, bufferHours int) *AvailabilityService {
	return &AvailabilityService{
		carRepo:     carRepo,
		bookingRepo: bookingRepo,
		bufferHours: bufferHours,
	}
}

// AvailabilityResult is the outcome of an availability check. CarMissing
// distinguishes an unknown car (not found) from an occupied one (conflict).
type AvailabilityResult struct {
	Valid      bool
	CarMissing bool
	Errors     []FieldError
}

// CheckAvailability reports whether the car can serve [start, end].
// excludeBookingID skips a booking from the conflict scan, so an existing
// booking can be re-validated against its own window.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, carID string, start, end time.Time, excludeBookingID string) (*AvailabilityResult, error) {
	if carID == "" {
		return nil, ErrInvalidCarID
	}

	car, err := s.carRepo.GetByID(ctx, carID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &AvailabilityResult{
				CarMissing: true,
				Errors:     []FieldError{{Field: "carId", Message: "Car not found"}},
			}, nil
		}
		return nil, err
	}

	// A car that is not approved or not operational fails fast, before any
	// booking query.
	if msg := carStatusViolation(car); msg != "" {
		return &AvailabilityResult{
			Errors: []FieldError{{Field: "carId", Message: msg}},
		}, nil
	}

	// Buffered window for vehicle turnaround.
	buffer := time.Duration(s.bufferHours) * time.Hour
	bufferedStart := start.Add(-buffer)
	bufferedEnd := end.Add(buffer)

	conflicts, err := s.bookingRepo.FindOverlapping(ctx, repository.OverlapFilter{
		CarID:            carID,
		WindowStart:      bufferedStart,
		WindowEnd:        bufferedEnd,
		Statuses:         []domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusActive},
		PaymentStatus:    domain.PaymentStatusPaid,
		ExcludeBookingID: excludeBookingID,
	})
	if err != nil {
		return nil, err
	}

	if len(conflicts) > 0 {
		// Conflict details stay server-side; the caller only sees a
		// generic message.
		for _, c := range conflicts {
			log.Printf("[AVAILABILITY] conflict: car=%s booking=%s window=%s..%s",
				carID, c.ID, c.StartDate.Format(time.RFC3339), c.EndDate.Format(time.RFC3339))
		}
		return &AvailabilityResult{
			Errors: []FieldError{{Field: "carId", Message: ErrCarNotAvailable.Error()}},
		}, nil
	}

	return &AvailabilityResult{Valid: true}, nil
}

// carStatusViolation returns the status-specific message for a car that
// cannot take bookings, or "" when the car is bookable.
func carStatusViolation(car *domain.Car) string {
	if car.ApprovalStatus != domain.CarApprovalApproved {
		return "Car is not approved for bookings"
	}

	switch car.Status {
	case domain.CarStatusAvailable:
		return ""
	case domain.CarStatusBooked:
		return "Car is currently booked"
	case domain.CarStatusOnHold:
		return "Car is on hold"
	case domain.CarStatusInService:
		return "Car is in service"
	default:
		return "Car is not available"
	}
}
