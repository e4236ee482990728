package service

import (
	"context"
	"log"

	"hyre/internal/domain"
)

// PayoutService computes the chauffeur payout owed for a completed booking
// and emits the payout event. Payout execution lives downstream; this
// service only decides the amount.
type PayoutService struct {
	rates    RatesProvider
	notifier *NotificationService
}

// NewPayoutService creates a new PayoutService.
func NewPayoutService(rates RatesProvider, notifier *NotificationService) *PayoutService {
	return &PayoutService{rates: rates, notifier: notifier}
}

// ProcessForBooking computes the payout for a completed booking and emits
// the payout event. Best-effort: a failure is logged and never rolls back
// the completed status.
func (s *PayoutService) ProcessForBooking(ctx context.Context, booking *domain.Booking) {
	rates, err := s.rates.GetRates(ctx)
	if err != nil {
		log.Printf("[PAYOUT] rates unavailable for booking %s: %v", booking.ID, err)
		return
	}

	payout := booking.TotalAmount * (1 - rates.CommissionRatePercent/100)
	log.Printf("[PAYOUT] booking=%s chauffeur=%s amount=%.2f", booking.ID, booking.ChauffeurID, payout)

	s.notifier.NotifyPayoutRequested(ctx, booking, payout)
}
