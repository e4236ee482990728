package service

import (
	"context"
	"log"
	"time"

	"hyre/internal/repository"
)

// TransitionService advances booking status purely as a function of
// wall-clock time. Both operations are idempotent and re-entrant: the bulk
// update's status guard means a re-run matches nothing it already moved.
type TransitionService struct {
	bookingRepo repository.BookingRepository
	notifier    *NotificationService
	payouts     *PayoutService
	now         Clock
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(bookingRepo repository.BookingRepository, notifier *NotificationService, payouts *PayoutService, now Clock) *TransitionService {
	if now == nil {
		now = time.Now
	}
	return &TransitionService{
		bookingRepo: bookingRepo,
		notifier:    notifier,
		payouts:     payouts,
		now:         now,
	}
}

// ActivateDueBookings moves CONFIRMED+PAID bookings whose start time has
// passed to ACTIVE. Side effects run after the status commit and are
// best-effort; a transition is never rolled back because one failed.
func (s *TransitionService) ActivateDueBookings(ctx context.Context) (int, error) {
	bookings, err := s.bookingRepo.ActivateDue(ctx, s.now())
	if err != nil {
		return 0, err
	}

	for _, booking := range bookings {
		s.notifier.NotifyBookingActivated(ctx, booking)
	}

	if len(bookings) > 0 {
		log.Printf("[SCHEDULER] activated %d booking(s)", len(bookings))
	}

	return len(bookings), nil
}

// CompleteDueBookings moves ACTIVE+PAID bookings whose effective end time
// has passed to COMPLETED, then dispatches the review request and the
// chauffeur payout for each.
func (s *TransitionService) CompleteDueBookings(ctx context.Context) (int, error) {
	bookings, err := s.bookingRepo.CompleteDue(ctx, s.now())
	if err != nil {
		return 0, err
	}

	for _, booking := range bookings {
		s.notifier.NotifyReviewRequested(ctx, booking)
		s.payouts.ProcessForBooking(ctx, booking)
	}

	if len(bookings) > 0 {
		log.Printf("[SCHEDULER] completed %d booking(s)", len(bookings))
	}

	return len(bookings), nil
}
