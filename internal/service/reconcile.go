package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"hyre/internal/domain"
	"hyre/internal/repository"
)

// ChargeCompletedEvent is the inbound "charge completed" notification from
// the payment provider.
type ChargeCompletedEvent struct {
	TxRef            string  `json:"tx_ref"`
	ProviderChargeID string  `json:"provider_charge_id"`
	Amount           float64 `json:"amount"`
}

// ReconciliationService maps an external payment event to exactly one
// internal entity and commits it idempotently. Anomalies (ambiguous or
// unrecognized references) are logged and acknowledged, never retried:
// a retry cannot resolve them.
type ReconciliationService struct {
	provider           PaymentProvider
	bookingRepo        repository.BookingRepository
	extRepo            repository.ExtensionRepository
	paymentRepo        repository.PaymentRepository
	bookingConfirmer   Confirmer
	extensionConfirmer Confirmer
	now                Clock
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(
	provider PaymentProvider,
	bookingRepo repository.BookingRepository,
	extRepo repository.ExtensionRepository,
	paymentRepo repository.PaymentRepository,
	bookingConfirmer Confirmer,
	extensionConfirmer Confirmer,
	now Clock,
) *ReconciliationService {
	if now == nil {
		now = time.Now
	}
	return &ReconciliationService{
		provider:           provider,
		bookingRepo:        bookingRepo,
		extRepo:            extRepo,
		paymentRepo:        paymentRepo,
		bookingConfirmer:   bookingConfirmer,
		extensionConfirmer: extensionConfirmer,
		now:                now,
	}
}

// HandleChargeCompleted processes one inbound charge event. A returned
// error means the failure is transient (provider or store unreachable) and
// the event should be redelivered; anomalies return nil so the event is
// acknowledged.
func (s *ReconciliationService) HandleChargeCompleted(ctx context.Context, event ChargeCompletedEvent) error {
	// Server-side re-verification; the webhook payload's fields are never
	// trusted directly.
	verification, err := s.provider.VerifyTransaction(ctx, event.ProviderChargeID)
	if err != nil {
		return fmt.Errorf("verify charge %s: %w", event.ProviderChargeID, err)
	}

	if !verification.Successful() {
		log.Printf("[RECONCILE] charge %s not successful (status=%s), ignoring", event.ProviderChargeID, verification.Status)
		return nil
	}

	if verification.TxRef != event.TxRef {
		log.Printf("[RECONCILE] tx_ref mismatch: event=%s verified=%s, ignoring", event.TxRef, verification.TxRef)
		return nil
	}

	// A tx_ref can belong to a booking or to an extension; look up both
	// sides concurrently.
	var (
		wg      sync.WaitGroup
		booking *domain.Booking
		ext     *domain.Extension
		bErr    error
		eErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		booking, bErr = s.bookingRepo.GetByReference(ctx, event.TxRef)
	}()
	go func() {
		defer wg.Done()
		ext, eErr = s.extRepo.GetByPaymentIntentID(ctx, event.TxRef)
	}()
	wg.Wait()

	if bErr != nil {
		return fmt.Errorf("lookup booking by reference %s: %w", event.TxRef, bErr)
	}
	if eErr != nil {
		return fmt.Errorf("lookup extension by intent %s: %w", event.TxRef, eErr)
	}

	// A tx_ref resolving to both entities is a bug, not a race; neither
	// side is confirmed.
	if booking != nil && ext != nil {
		log.Printf("[RECONCILE] anomaly: tx_ref %s matches booking %s AND extension %s, not processing",
			event.TxRef, booking.ID, ext.ID)
		return nil
	}

	if booking == nil && ext == nil {
		log.Printf("[RECONCILE] unrecognized tx_ref %s, not processing", event.TxRef)
		return nil
	}

	payment := &domain.Payment{
		ID:               uuid.New().String(),
		TxRef:            event.TxRef,
		ProviderChargeID: event.ProviderChargeID,
		Amount:           verification.Amount,
		Status:           domain.PaymentTxStatusSuccessful,
		CreatedAt:        s.now(),
	}

	var confirmer Confirmer
	if booking != nil {
		payment.BookingID = booking.ID
		confirmer = s.bookingConfirmer
	} else {
		payment.ExtensionID = ext.ID
		confirmer = s.extensionConfirmer
	}

	stored, err := s.paymentRepo.Upsert(ctx, payment)
	if err != nil {
		return fmt.Errorf("upsert payment %s: %w", event.TxRef, err)
	}

	confirmed, err := confirmer.ConfirmFromPayment(ctx, stored)
	if err != nil {
		return fmt.Errorf("confirm payment %s: %w", event.TxRef, err)
	}

	if !confirmed {
		// Replay of an already-confirmed charge, or an amount mismatch the
		// confirmer logged. Either way, redelivery cannot change the outcome.
		log.Printf("[RECONCILE] tx_ref %s acknowledged without confirmation", event.TxRef)
	}

	return nil
}
