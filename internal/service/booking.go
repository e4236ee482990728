package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"hyre/internal/domain"
	"hyre/internal/payments"
	internalredis "hyre/internal/redis"
	"hyre/internal/repository"
	"hyre/internal/repository/postgres"
)

// amountTolerance absorbs float rounding between the priced total and the
// provider-verified charge amount.
const amountTolerance = 0.01

// ErrCarNotFound is returned when the requested car does not exist.
var ErrCarNotFound = errors.New("car not found")

// ErrInvalidBookingType is returned for an unknown booking type.
var ErrInvalidBookingType = errors.New("invalid booking type")

// ValidateBookingType parses a booking type string.
func ValidateBookingType(s string) (domain.BookingType, error) {
	switch domain.BookingType(s) {
	case domain.BookingTypeDay, domain.BookingTypeNight, domain.BookingTypeAirportPickup:
		return domain.BookingType(s), nil
	default:
		return "", ErrInvalidBookingType
	}
}

// BookingService handles booking creation, cancellation and payment
// confirmation.
type BookingService struct {
	db           *sql.DB
	bookingRepo  repository.BookingRepository
	legRepo      repository.BookingLegRepository
	carRepo      repository.CarRepository
	validator    *DateValidator
	availability *AvailabilityService
	rates        RatesProvider
	provider     PaymentProvider
	sessions     SessionStore
	notifier     *NotificationService
	now          Clock
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	db *sql.DB,
	bookingRepo repository.BookingRepository,
	legRepo repository.BookingLegRepository,
	carRepo repository.CarRepository,
	validator *DateValidator,
	availability *AvailabilityService,
	rates RatesProvider,
	provider PaymentProvider,
	sessions SessionStore,
	notifier *NotificationService,
	now Clock,
) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		db:           db,
		bookingRepo:  bookingRepo,
		legRepo:      legRepo,
		carRepo:      carRepo,
		validator:    validator,
		availability: availability,
		rates:        rates,
		provider:     provider,
		sessions:     sessions,
		notifier:     notifier,
		now:          now,
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	CarID      string
	UserID     string // empty for guest bookings
	Type       domain.BookingType
	StartDate  time.Time
	EndDate    time.Time
	GuestName  string
	GuestEmail string
	GuestPhone string
}

// CreateBookingResult contains the created booking and its checkout link.
type CreateBookingResult struct {
	Booking     *domain.Booking
	TxRef       string
	CheckoutURL string
}

// CreateBooking validates the window, reserves the car and opens a payment
// intent. The booking stays PENDING+UNPAID until the charge is confirmed.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error) {
	if req.CarID == "" {
		return nil, ErrInvalidCarID
	}

	if result := s.validator.ValidateDates(req.StartDate, req.EndDate, req.Type); !result.Valid {
		return nil, result.Err()
	}

	availability, err := s.availability.CheckAvailability(ctx, req.CarID, req.StartDate, req.EndDate, "")
	if err != nil {
		return nil, err
	}
	if availability.CarMissing {
		return nil, ErrCarNotFound
	}
	if !availability.Valid {
		return nil, ErrCarNotAvailable
	}

	car, err := s.carRepo.GetByID(ctx, req.CarID)
	if err != nil {
		return nil, err
	}

	rates, err := s.rates.GetRates(ctx)
	if err != nil {
		return nil, err
	}

	hours := req.EndDate.Sub(req.StartDate).Hours()
	total := grossAmount(hours*car.RatePerHour, rates)

	booking := &domain.Booking{
		ID:               uuid.New().String(),
		CarID:            req.CarID,
		UserID:           req.UserID,
		ChauffeurID:      car.ChauffeurID,
		Status:           domain.BookingStatusPending,
		PaymentStatus:    domain.PaymentStatusUnpaid,
		Type:             req.Type,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		BookingReference: newReference("HYR"),
		TotalAmount:      total,
		CreatedAt:        s.now(),
	}

	// Booking and legs commit together.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txBookingRepo := postgres.NewBookingRepositoryWithTx(tx)
	txLegRepo := postgres.NewBookingLegRepositoryWithTx(tx)

	if err = txBookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}

	for _, leg := range buildLegs(booking) {
		if err = txLegRepo.Create(ctx, leg); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, total, payments.IntentMetadata{
		TxRef:           booking.BookingReference,
		TransactionType: payments.TransactionTypeBooking,
		CustomerEmail:   req.GuestEmail,
	})
	if err != nil {
		return nil, err
	}

	// Guest contact is held only until the charge confirms.
	if req.UserID == "" && s.sessions != nil {
		session := &internalredis.CheckoutSession{
			TxRef:      booking.BookingReference,
			GuestName:  req.GuestName,
			GuestEmail: req.GuestEmail,
			GuestPhone: req.GuestPhone,
			CreatedAt:  s.now(),
		}
		if err := s.sessions.Put(ctx, session); err != nil {
			log.Printf("[BOOKING] stash checkout session %s failed: %v", booking.BookingReference, err)
		}
	}

	return &CreateBookingResult{
		Booking:     booking,
		TxRef:       booking.BookingReference,
		CheckoutURL: intent.CheckoutURL,
	}, nil
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	return s.bookingRepo.GetByID(ctx, bookingID)
}

// GetAllBookings retrieves recent bookings.
func (s *BookingService) GetAllBookings(ctx context.Context) ([]*domain.Booking, error) {
	return s.bookingRepo.GetAll(ctx)
}

// CancelBooking soft-cancels a booking still in a cancellable state.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, reason string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}

	ok, err := s.bookingRepo.Cancel(ctx, bookingID, reason, s.now())
	if err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrBookingNotCancellable
	}

	s.notifier.NotifyBookingCancelled(ctx, booking, reason)

	return booking, nil
}

// ConfirmFromPayment flips a PENDING+UNPAID booking to CONFIRMED+PAID once
// its charge has been verified. The conditional update makes replays and
// concurrent confirmations no-ops; the first caller wins, later ones get
// false.
func (s *BookingService) ConfirmFromPayment(ctx context.Context, payment *domain.Payment) (bool, error) {
	booking, err := s.bookingRepo.GetByID(ctx, payment.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("[BOOKING] confirm: booking %s not found for tx_ref %s", payment.BookingID, payment.TxRef)
			return false, nil
		}
		return false, err
	}

	if math.Abs(payment.Amount-booking.TotalAmount) > amountTolerance {
		log.Printf("[BOOKING] confirm: amount mismatch for %s: charged %.2f, expected %.2f",
			booking.ID, payment.Amount, booking.TotalAmount)
		return false, nil
	}

	ok, err := s.bookingRepo.UpdateStatusIf(ctx, booking.ID,
		domain.BookingStatusPending, domain.BookingStatusConfirmed, domain.PaymentStatusPaid)
	if err != nil {
		return false, err
	}
	if !ok {
		// Already confirmed (webhook replay) or no longer pending.
		return false, nil
	}

	booking.Status = domain.BookingStatusConfirmed
	booking.PaymentStatus = domain.PaymentStatusPaid

	contactEmail := ""
	if s.sessions != nil {
		if session, err := s.sessions.Get(ctx, payment.TxRef); err == nil && session != nil {
			contactEmail = session.GuestEmail
			_ = s.sessions.Delete(ctx, payment.TxRef)
		}
	}

	s.notifier.NotifyBookingConfirmed(ctx, booking, contactEmail)

	return true, nil
}

// buildLegs splits a booking window into one leg per calendar day.
func buildLegs(booking *domain.Booking) []*domain.BookingLeg {
	var legs []*domain.BookingLeg

	start := booking.StartDate
	for start.Before(booking.EndDate) {
		dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		nextMidnight := dayStart.AddDate(0, 0, 1)

		legEnd := booking.EndDate
		if nextMidnight.Before(legEnd) {
			legEnd = nextMidnight
		}

		legs = append(legs, &domain.BookingLeg{
			ID:           uuid.New().String(),
			BookingID:    booking.ID,
			LegDate:      dayStart,
			LegStartTime: start,
			LegEndTime:   legEnd,
		})

		start = nextMidnight
	}

	return legs
}

// newReference generates a caller-side unique reference usable as a
// provider tx_ref.
func newReference(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.New().String()[:8]))
}

// Ensure BookingService implements Confirmer.
var _ Confirmer = (*BookingService)(nil)
