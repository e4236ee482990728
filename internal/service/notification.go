package service

import (
	"context"
	"log"
	"time"

	"hyre/internal/domain"
)

// EventPublisher delivers lifecycle events to the message broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// EventType identifies a lifecycle notification. The set is closed and known
// at build time, so dispatch is a table lookup rather than a handler chain.
type EventType string

const (
	EventBookingConfirmed   EventType = "BOOKING_CONFIRMED"
	EventBookingActivated   EventType = "BOOKING_ACTIVATED"
	EventBookingCancelled   EventType = "BOOKING_CANCELLED"
	EventReviewRequested    EventType = "REVIEW_REQUESTED"
	EventExtensionActivated EventType = "EXTENSION_ACTIVATED"
	EventPayoutRequested    EventType = "PAYOUT_REQUESTED"
)

// Event is the envelope published for every lifecycle notification.
type Event struct {
	Type       EventType      `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// eventTemplate fixes the routing key and human-readable framing per type.
type eventTemplate struct {
	routingKey string
	title      string
	message    string
}

// dispatchTable maps every known event type to its template. The mapping is
// closed: adding an event type means adding a row here.
var dispatchTable = map[EventType]eventTemplate{
	EventBookingConfirmed:   {"booking.confirmed", "Booking Confirmed", "Your booking has been confirmed."},
	EventBookingActivated:   {"booking.activated", "Trip Started", "Your chauffeur trip has started."},
	EventBookingCancelled:   {"booking.cancelled", "Booking Cancelled", "Your booking has been cancelled."},
	EventReviewRequested:    {"booking.review_requested", "How was your trip?", "Your trip is complete. Tell us how it went."},
	EventExtensionActivated: {"extension.activated", "Extension Confirmed", "Your booking extension has been confirmed."},
	EventPayoutRequested:    {"payout.requested", "Payout Requested", "A chauffeur payout has been requested."},
}

// NotificationService emits lifecycle events. Emission is intent only:
// templating and delivery happen downstream of the broker, and a publish
// failure is logged, never propagated.
type NotificationService struct {
	publisher EventPublisher
	now       Clock
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher EventPublisher, now Clock) *NotificationService {
	if now == nil {
		now = time.Now
	}
	return &NotificationService{publisher: publisher, now: now}
}

// Notify publishes one lifecycle event. Unknown types are logged and dropped.
func (s *NotificationService) Notify(ctx context.Context, eventType EventType, data map[string]any) {
	tmpl, ok := dispatchTable[eventType]
	if !ok {
		log.Printf("[NOTIFICATION] unknown event type %q dropped", eventType)
		return
	}

	event := Event{
		Type:       eventType,
		Title:      tmpl.title,
		Message:    tmpl.message,
		Data:       data,
		OccurredAt: s.now(),
	}

	if s.publisher == nil {
		log.Printf("[NOTIFICATION] type=%s (no publisher configured)", eventType)
		return
	}

	if err := s.publisher.PublishJSON(ctx, tmpl.routingKey, event); err != nil {
		log.Printf("[NOTIFICATION] publish %s failed: %v", eventType, err)
	}
}

// NotifyBookingConfirmed emits the confirmation event for a paid booking.
func (s *NotificationService) NotifyBookingConfirmed(ctx context.Context, booking *domain.Booking, contactEmail string) {
	s.Notify(ctx, EventBookingConfirmed, map[string]any{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
		"contact_email":     contactEmail,
		"start_date":        booking.StartDate,
		"end_date":          booking.EndDate,
	})
}

// NotifyBookingActivated emits the trip-start event.
func (s *NotificationService) NotifyBookingActivated(ctx context.Context, booking *domain.Booking) {
	s.Notify(ctx, EventBookingActivated, map[string]any{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
	})
}

// NotifyBookingCancelled emits the cancellation event.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, booking *domain.Booking, reason string) {
	s.Notify(ctx, EventBookingCancelled, map[string]any{
		"booking_id": booking.ID,
		"reason":     reason,
	})
}

// NotifyReviewRequested emits the post-trip review request.
func (s *NotificationService) NotifyReviewRequested(ctx context.Context, booking *domain.Booking) {
	s.Notify(ctx, EventReviewRequested, map[string]any{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
	})
}

// NotifyExtensionActivated emits the extension confirmation event.
func (s *NotificationService) NotifyExtensionActivated(ctx context.Context, ext *domain.Extension) {
	s.Notify(ctx, EventExtensionActivated, map[string]any{
		"extension_id": ext.ID,
		"start_time":   ext.StartTime,
		"end_time":     ext.EndTime,
		"amount":       ext.TotalAmount,
	})
}

// NotifyPayoutRequested emits the chauffeur payout event.
func (s *NotificationService) NotifyPayoutRequested(ctx context.Context, booking *domain.Booking, amount float64) {
	s.Notify(ctx, EventPayoutRequested, map[string]any{
		"booking_id":   booking.ID,
		"chauffeur_id": booking.ChauffeurID,
		"amount":       amount,
	})
}
