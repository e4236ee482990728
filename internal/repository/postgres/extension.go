package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hyre/internal/domain"
	"hyre/internal/repository"
)

const extensionColumns = `id, booking_leg_id, start_time, end_time, status, payment_status,
	total_amount, payment_intent_id, created_at`

// ExtensionRepository is a PostgreSQL implementation of repository.ExtensionRepository.
type ExtensionRepository struct {
	q Querier
}

// NewExtensionRepository creates a new PostgreSQL extension repository.
func NewExtensionRepository(db *sql.DB) *ExtensionRepository {
	return &ExtensionRepository{q: db}
}

// NewExtensionRepositoryWithTx creates an extension repository using a transaction.
func NewExtensionRepositoryWithTx(tx *sql.Tx) *ExtensionRepository {
	return &ExtensionRepository{q: tx}
}

// Create persists a new extension.
func (r *ExtensionRepository) Create(ctx context.Context, ext *domain.Extension) error {
	query := `
		INSERT INTO extensions (id, booking_leg_id, start_time, end_time, status, payment_status,
			total_amount, payment_intent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		ext.ID,
		ext.BookingLegID,
		ext.StartTime,
		ext.EndTime,
		ext.Status,
		ext.PaymentStatus,
		ext.TotalAmount,
		ext.PaymentIntentID,
		ext.CreatedAt,
	)

	return err
}

// GetByID retrieves an extension by ID.
func (r *ExtensionRepository) GetByID(ctx context.Context, id string) (*domain.Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions WHERE id = $1`

	ext, err := scanExtension(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return ext, nil
}

// GetByPaymentIntentID retrieves an extension by the tx_ref of its payment
// intent. Returns nil if no extension carries the reference.
func (r *ExtensionRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions WHERE payment_intent_id = $1`

	ext, err := scanExtension(r.q.QueryRowContext(ctx, query, intentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return ext, nil
}

// GetByLegID retrieves all extensions on a leg ordered by start time.
func (r *ExtensionRepository) GetByLegID(ctx context.Context, legID string) ([]*domain.Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions WHERE booking_leg_id = $1 ORDER BY start_time ASC`

	rows, err := r.q.QueryContext(ctx, query, legID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exts []*domain.Extension
	for rows.Next() {
		ext, err := scanExtension(rows)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	return exts, rows.Err()
}

// UpdateWindowIf rewrites an unpaid pending extension's end time, price and
// payment intent. Guarded on PENDING+UNPAID so a row confirmed by a
// concurrent webhook is never overwritten.
func (r *ExtensionRepository) UpdateWindowIf(ctx context.Context, id string, endTime time.Time, totalAmount float64, paymentIntentID string) (bool, error) {
	query := `
		UPDATE extensions
		SET end_time = $1, total_amount = $2, payment_intent_id = $3
		WHERE id = $4 AND status = $5 AND payment_status = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		endTime,
		totalAmount,
		paymentIntentID,
		id,
		domain.ExtensionStatusPending,
		domain.PaymentStatusUnpaid,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// UpdateStatusIf flips status/paymentStatus only while the extension is
// still in the expected current state.
func (r *ExtensionRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.ExtensionStatus, paymentStatus domain.PaymentStatus) (bool, error) {
	query := `
		UPDATE extensions
		SET status = $1, payment_status = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query, to, paymentStatus, id, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func scanExtension(row rowScanner) (*domain.Extension, error) {
	var ext domain.Extension

	err := row.Scan(
		&ext.ID,
		&ext.BookingLegID,
		&ext.StartTime,
		&ext.EndTime,
		&ext.Status,
		&ext.PaymentStatus,
		&ext.TotalAmount,
		&ext.PaymentIntentID,
		&ext.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &ext, nil
}

// Ensure ExtensionRepository implements repository.ExtensionRepository.
var _ repository.ExtensionRepository = (*ExtensionRepository)(nil)
