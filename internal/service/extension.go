package service

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"hyre/internal/domain"
	"hyre/internal/payments"
	"hyre/internal/repository"
)

// ExtensionService creates and merges hourly extensions to an active DAY
// booking, and confirms them once paid.
type ExtensionService struct {
	bookingRepo repository.BookingRepository
	legRepo     repository.BookingLegRepository
	extRepo     repository.ExtensionRepository
	carRepo     repository.CarRepository
	rates       RatesProvider
	provider    PaymentProvider
	notifier    *NotificationService
	now         Clock
}

// NewExtensionService creates a new ExtensionService.
func NewExtensionService(
	bookingRepo repository.BookingRepository,
	legRepo repository.BookingLegRepository,
	extRepo repository.ExtensionRepository,
	carRepo repository.CarRepository,
	rates RatesProvider,
	provider PaymentProvider,
	notifier *NotificationService,
	now Clock,
) *ExtensionService {
	if now == nil {
		now = time.Now
	}
	return &ExtensionService{
		bookingRepo: bookingRepo,
		legRepo:     legRepo,
		extRepo:     extRepo,
		carRepo:     carRepo,
		rates:       rates,
		provider:    provider,
		notifier:    notifier,
		now:         now,
	}
}

// CreateExtensionResult contains the extension and its checkout link.
type CreateExtensionResult struct {
	ExtensionID     string
	PaymentIntentID string
	CheckoutURL     string
}

// CreateExtension pushes the current leg's effective end time later by the
// given whole hours. An unpaid pending extension on the leg is repriced in
// place instead of stacking a second row, so paying once covers the whole
// extended window.
func (s *ExtensionService) CreateExtension(ctx context.Context, bookingID string, hours int) (*CreateExtensionResult, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if hours <= 0 {
		return nil, ErrInvalidExtensionHours
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotActive
		}
		return nil, err
	}

	if booking.Status != domain.BookingStatusActive {
		return nil, ErrBookingNotActive
	}

	if booking.Type != domain.BookingTypeDay {
		return nil, ErrOnlyDayBookingsExtendable
	}

	leg, err := s.currentLeg(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	extensions, err := s.extRepo.GetByLegID(ctx, leg.ID)
	if err != nil {
		return nil, err
	}

	// Effective current end: the latest pending or active extension wins,
	// else the leg's original end time.
	effectiveEnd := leg.LegEndTime
	var latest *domain.Extension
	for _, ext := range extensions {
		if ext.Status != domain.ExtensionStatusPending && ext.Status != domain.ExtensionStatusActive {
			continue
		}
		if ext.EndTime.After(effectiveEnd) {
			effectiveEnd = ext.EndTime
			latest = ext
		}
	}

	proposedEnd := effectiveEnd.Add(time.Duration(hours) * time.Hour)

	// Never across the leg's midnight.
	midnight := leg.MidnightBoundary()
	if proposedEnd.After(midnight) {
		remaining := int(midnight.Sub(effectiveEnd).Hours())
		return nil, &ExtensionTooLongError{RemainingHours: remaining}
	}

	car, err := s.carRepo.GetByID(ctx, booking.CarID)
	if err != nil {
		return nil, err
	}

	rates, err := s.rates.GetRates(ctx)
	if err != nil {
		return nil, err
	}

	deltaPrice := grossAmount(float64(hours)*car.RatePerHour, rates)
	txRef := newReference("HYX")

	if latest != nil && latest.IsMergeable(effectiveEnd) {
		// The pending row has not been paid for: extend and reprice it in
		// place, pointing it at a fresh intent covering the whole window.
		newTotal := latest.TotalAmount + deltaPrice

		intent, err := s.provider.CreatePaymentIntent(ctx, newTotal, payments.IntentMetadata{
			TxRef:           txRef,
			TransactionType: payments.TransactionTypeBookingExtension,
		})
		if err != nil {
			return nil, err
		}

		ok, err := s.extRepo.UpdateWindowIf(ctx, latest.ID, proposedEnd, newTotal, txRef)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Paid or cancelled between read and update.
			return nil, ErrExtensionConflict
		}

		return &CreateExtensionResult{
			ExtensionID:     latest.ID,
			PaymentIntentID: txRef,
			CheckoutURL:     intent.CheckoutURL,
		}, nil
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, deltaPrice, payments.IntentMetadata{
		TxRef:           txRef,
		TransactionType: payments.TransactionTypeBookingExtension,
	})
	if err != nil {
		return nil, err
	}

	ext := &domain.Extension{
		ID:              uuid.New().String(),
		BookingLegID:    leg.ID,
		StartTime:       effectiveEnd,
		EndTime:         proposedEnd,
		Status:          domain.ExtensionStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		TotalAmount:     deltaPrice,
		PaymentIntentID: txRef,
		CreatedAt:       s.now(),
	}

	if err := s.extRepo.Create(ctx, ext); err != nil {
		return nil, err
	}

	return &CreateExtensionResult{
		ExtensionID:     ext.ID,
		PaymentIntentID: txRef,
		CheckoutURL:     intent.CheckoutURL,
	}, nil
}

// currentLeg picks the leg being extended: today's leg if the booking has
// one, else the last leg.
func (s *ExtensionService) currentLeg(ctx context.Context, bookingID string) (*domain.BookingLeg, error) {
	legs, err := s.legRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, ErrBookingLegNotFound
	}

	today := s.now()
	for _, leg := range legs {
		if isSameDay(leg.LegDate, today) {
			return leg, nil
		}
	}

	return legs[len(legs)-1], nil
}

// ConfirmFromPayment flips a PENDING+UNPAID extension to ACTIVE+PAID once
// its charge has been verified. Replays are no-ops.
func (s *ExtensionService) ConfirmFromPayment(ctx context.Context, payment *domain.Payment) (bool, error) {
	ext, err := s.extRepo.GetByID(ctx, payment.ExtensionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("[EXTENSION] confirm: extension %s not found for tx_ref %s", payment.ExtensionID, payment.TxRef)
			return false, nil
		}
		return false, err
	}

	if math.Abs(payment.Amount-ext.TotalAmount) > amountTolerance {
		log.Printf("[EXTENSION] confirm: amount mismatch for %s: charged %.2f, expected %.2f",
			ext.ID, payment.Amount, ext.TotalAmount)
		return false, nil
	}

	ok, err := s.extRepo.UpdateStatusIf(ctx, ext.ID,
		domain.ExtensionStatusPending, domain.ExtensionStatusActive, domain.PaymentStatusPaid)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	ext.Status = domain.ExtensionStatusActive
	ext.PaymentStatus = domain.PaymentStatusPaid

	s.notifier.NotifyExtensionActivated(ctx, ext)

	return true, nil
}

// Ensure ExtensionService implements Confirmer.
var _ Confirmer = (*ExtensionService)(nil)
