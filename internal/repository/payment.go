package repository

import (
	"context"

	"hyre/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Upsert persists a payment keyed by tx_ref. Replays of the same
	// tx_ref update the existing row in place and never create a
	// duplicate. Returns the stored payment.
	Upsert(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)

	// GetByTxRef retrieves a payment by tx_ref. Returns nil if no payment
	// carries the reference.
	GetByTxRef(ctx context.Context, txRef string) (*domain.Payment, error)
}
