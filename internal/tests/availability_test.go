package tests

import (
	"context"
	"testing"
	"time"

	"hyre/internal/domain"
	"hyre/internal/service"
)

// ──────────────────────────────────────────────
// 2. AVAILABILITY AND BUFFERED OVERLAP
// ──────────────────────────────────────────────

func newTestCar(id string) *domain.Car {
	return &domain.Car{
		ID:             id,
		Name:           "Lexus ES 350",
		ChauffeurID:    "chauffeur-1",
		ApprovalStatus: domain.CarApprovalApproved,
		Status:         domain.CarStatusAvailable,
		RatePerHour:    5000,
		RatePerDay:     60000,
	}
}

func TestAvailability_NoConflicts_Valid(t *testing.T) {
	t.Parallel()

	carRepo := NewMockCarRepository()
	bookingRepo := NewMockBookingRepository()
	carRepo.AddCar(newTestCar("car-1"))

	svc := service.NewAvailabilityService(carRepo, bookingRepo, 2)

	start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	result, err := svc.CheckAvailability(context.Background(), "car-1", start, start.Add(4*time.Hour), "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected available, got violations: %v", result.Errors)
	}
}

func TestAvailability_UnknownCar_ReportsMissing(t *testing.T) {
	t.Parallel()

	carRepo := NewMockCarRepository()
	bookingRepo := NewMockBookingRepository()

	svc := service.NewAvailabilityService(carRepo, bookingRepo, 2)

	start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	result, err := svc.CheckAvailability(context.Background(), "nope", start, start.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.CarMissing {
		t.Error("expected CarMissing for unknown car")
	}
	if result.Valid {
		t.Error("expected unknown car to be unavailable")
	}
}

func TestAvailability_CarStatus_Blocks(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(*domain.Car)
		wantMsg string
	}{
		{"booked", func(c *domain.Car) { c.Status = domain.CarStatusBooked }, "Car is currently booked"},
		{"on hold", func(c *domain.Car) { c.Status = domain.CarStatusOnHold }, "Car is on hold"},
		{"in service", func(c *domain.Car) { c.Status = domain.CarStatusInService }, "Car is in service"},
		{"not approved", func(c *domain.Car) { c.ApprovalStatus = domain.CarApprovalPending }, "Car is not approved for bookings"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			car := newTestCar("car-1")
			tc.mutate(car)

			carRepo := NewMockCarRepository()
			bookingRepo := NewMockBookingRepository()
			carRepo.AddCar(car)

			svc := service.NewAvailabilityService(carRepo, bookingRepo, 2)

			start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
			result, err := svc.CheckAvailability(context.Background(), "car-1", start, start.Add(time.Hour), "")
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if result.Valid {
				t.Fatal("expected unavailable")
			}
			if len(result.Errors) != 1 || result.Errors[0].Message != tc.wantMsg {
				t.Errorf("expected message %q, got: %v", tc.wantMsg, result.Errors)
			}
		})
	}
}

func TestAvailability_BufferedOverlap_Rejected(t *testing.T) {
	t.Parallel()

	carRepo := NewMockCarRepository()
	bookingRepo := NewMockBookingRepository()
	carRepo.AddCar(newTestCar("car-1"))

	// Existing paid booking 10:00-14:00.
	bookingRepo.AddBooking(&domain.Booking{
		ID:            "booking-1",
		CarID:         "car-1",
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPaid,
		StartDate:     time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC),
	})

	svc := service.NewAvailabilityService(carRepo, bookingRepo, 2)

	// 15:00 is only 1h after the existing booking ends; with a 2h buffer the
	// car is still turning around.
	start := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	result, err := svc.CheckAvailability(context.Background(), "car-1", start, start.Add(2*time.Hour), "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Valid {
		t.Error("expected conflict inside the turnaround buffer")
	}
	if len(result.Errors) != 1 || result.Errors[0].Message != service.ErrCarNotAvailable.Error() {
		t.Errorf("expected the generic conflict message, got: %v", result.Errors)
	}
}

func TestAvailability_ExactBufferBoundary_Accepted(t *testing.T) {
	t.Parallel()

	carRepo := NewMockCarRepository()
	bookingRepo := NewMockBookingRepository()
	carRepo.AddCar(newTestCar("car-1"))

	bookingRepo.AddBooking(&domain.Booking{
		ID:            "booking-1",
		CarID:         "car-1",
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPaid,
		StartDate:     time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC),
	})

	svc := service.NewAvailabilityService(carRepo, bookingRepo, 2)

	// Starting exactly at end+buffer (16:00) touches but does not overlap:
	// the comparison is strict.
	start := time.Date(2026, 3, 12, 16, 0, 0, 0, time.UTC)
	result, err := svc.CheckAvailability(context.Background(), "car-1", start, start.Add(2*time.Hour), "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected the exact buffer boundary to be bookable, got: %v", result.Errors)
	}
}

func TestAvailability_UnpaidPendingBooking_DoesNotBlock(t *testing.T) {
	t.Parallel()

	carRepo := NewMockCarRepository()
	bookingRepo := NewMockBookingRepository()
	carRepo.AddCar(newTestCar("car-1"))

	// A PENDING+UNPAID hold never blocks the calendar.
	bookingRepo.AddBooking(&domain.Booking{
		ID:            "booking-1",
		CarID:         "car-1",
		Status:        domain.BookingStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
		StartDate:     time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC),
	})

	svc := service.NewAvailabilityService(carRepo, bookingRepo, 2)

	start := time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC)
	result, err := svc.CheckAvailability(context.Background(), "car-1", start, start.Add(2*time.Hour), "")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected unpaid pending booking not to block, got: %v", result.Errors)
	}
}

func TestAvailability_ExcludesOwnBooking(t *testing.T) {
	t.Parallel()

	carRepo := NewMockCarRepository()
	bookingRepo := NewMockBookingRepository()
	carRepo.AddCar(newTestCar("car-1"))

	bookingRepo.AddBooking(&domain.Booking{
		ID:            "booking-1",
		CarID:         "car-1",
		Status:        domain.BookingStatusActive,
		PaymentStatus: domain.PaymentStatusPaid,
		StartDate:     time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC),
	})

	svc := service.NewAvailabilityService(carRepo, bookingRepo, 2)

	start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	result, err := svc.CheckAvailability(context.Background(), "car-1", start, start.Add(4*time.Hour), "booking-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected a booking to pass validation against its own window, got: %v", result.Errors)
	}
}
