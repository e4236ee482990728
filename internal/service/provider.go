package service

import (
	"context"

	"hyre/internal/domain"
	"hyre/internal/payments"
	internalredis "hyre/internal/redis"
)

// PaymentProvider is the interface for the external payment provider.
type PaymentProvider interface {
	// CreatePaymentIntent requests a hosted checkout for the given amount.
	CreatePaymentIntent(ctx context.Context, amount float64, meta payments.IntentMetadata) (*payments.Intent, error)

	// VerifyTransaction re-verifies a charge server-side by its
	// provider-side id. Webhook payloads are never trusted directly.
	VerifyTransaction(ctx context.Context, providerChargeID string) (*payments.Verification, error)
}

// SessionStore is the short-lived keyed store bridging the two-phase guest
// checkout flow.
type SessionStore interface {
	Put(ctx context.Context, session *internalredis.CheckoutSession) error
	Get(ctx context.Context, txRef string) (*internalredis.CheckoutSession, error)
	Delete(ctx context.Context, txRef string) error
}

// Confirmer validates a verified payment against its entity and performs
// the final status flip. Each entity type owns its amount-match check.
type Confirmer interface {
	ConfirmFromPayment(ctx context.Context, payment *domain.Payment) (bool, error)
}
