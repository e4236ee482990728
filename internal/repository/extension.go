package repository

import (
	"context"
	"time"

	"hyre/internal/domain"
)

// ExtensionRepository defines the persistence operations for extensions.
type ExtensionRepository interface {
	// Create persists a new extension.
	Create(ctx context.Context, ext *domain.Extension) error

	// GetByID retrieves an extension by ID.
	GetByID(ctx context.Context, id string) (*domain.Extension, error)

	// GetByPaymentIntentID retrieves an extension by the tx_ref of its
	// payment intent. Returns nil if no extension carries the reference.
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Extension, error)

	// GetByLegID retrieves all extensions on a leg ordered by start time.
	GetByLegID(ctx context.Context, legID string) ([]*domain.Extension, error)

	// UpdateWindowIf rewrites an unpaid pending extension's end time, price
	// and payment intent. The update is guarded on PENDING+UNPAID so a
	// concurrently confirmed row is never overwritten; returns false when
	// the guard did not match.
	UpdateWindowIf(ctx context.Context, id string, endTime time.Time, totalAmount float64, paymentIntentID string) (bool, error)

	// UpdateStatusIf flips status/paymentStatus only while the extension is
	// still in the expected current state.
	UpdateStatusIf(ctx context.Context, id string, from domain.ExtensionStatus, to domain.ExtensionStatus, paymentStatus domain.PaymentStatus) (bool, error)
}
