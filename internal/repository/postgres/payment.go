package postgres

import (
	"context"
	"database/sql"
	"errors"

	"hyre/internal/domain"
	"hyre/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Upsert persists a payment keyed by tx_ref. The unique constraint on
// tx_ref makes webhook replays converge on a single row.
func (r *PaymentRepository) Upsert(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	query := `
		INSERT INTO payments (id, tx_ref, provider_charge_id, amount, status, booking_id, extension_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tx_ref) DO UPDATE
		SET provider_charge_id = EXCLUDED.provider_charge_id,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status
		RETURNING id, tx_ref, provider_charge_id, amount, status, booking_id, extension_id, created_at
	`

	var bookingID sql.NullString
	if payment.BookingID != "" {
		bookingID = sql.NullString{String: payment.BookingID, Valid: true}
	}

	var extensionID sql.NullString
	if payment.ExtensionID != "" {
		extensionID = sql.NullString{String: payment.ExtensionID, Valid: true}
	}

	row := r.q.QueryRowContext(ctx, query,
		payment.ID,
		payment.TxRef,
		payment.ProviderChargeID,
		payment.Amount,
		payment.Status,
		bookingID,
		extensionID,
		payment.CreatedAt,
	)

	return scanPayment(row)
}

// GetByTxRef retrieves a payment by tx_ref. Returns nil if no payment
// carries the reference.
func (r *PaymentRepository) GetByTxRef(ctx context.Context, txRef string) (*domain.Payment, error) {
	query := `
		SELECT id, tx_ref, provider_charge_id, amount, status, booking_id, extension_id, created_at
		FROM payments WHERE tx_ref = $1
	`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, txRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return payment, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var bookingID sql.NullString
	var extensionID sql.NullString

	err := row.Scan(
		&payment.ID,
		&payment.TxRef,
		&payment.ProviderChargeID,
		&payment.Amount,
		&payment.Status,
		&bookingID,
		&extensionID,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bookingID.Valid {
		payment.BookingID = bookingID.String
	}
	if extensionID.Valid {
		payment.ExtensionID = extensionID.String
	}

	return &payment, nil
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
