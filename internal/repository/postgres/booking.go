package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"hyre/internal/domain"
	"hyre/internal/repository"
)

const bookingColumns = `id, car_id, user_id, chauffeur_id, status, payment_status, type,
	start_date, end_date, booking_reference, total_amount, created_at, cancelled_at, cancel_reason`

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, car_id, user_id, chauffeur_id, status, payment_status, type,
			start_date, end_date, booking_reference, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var userID sql.NullString
	if booking.UserID != "" {
		userID = sql.NullString{String: booking.UserID, Valid: true}
	}

	var chauffeurID sql.NullString
	if booking.ChauffeurID != "" {
		chauffeurID = sql.NullString{String: booking.ChauffeurID, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.CarID,
		userID,
		chauffeurID,
		booking.Status,
		booking.PaymentStatus,
		booking.Type,
		booking.StartDate,
		booking.EndDate,
		booking.BookingReference,
		booking.TotalAmount,
		booking.CreatedAt,
	)

	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return booking, nil
}

// GetByReference retrieves a booking by its unique booking reference.
// Returns nil if no booking carries the reference.
func (r *BookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_reference = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return booking, nil
}

// GetAll retrieves recent bookings.
func (r *BookingRepository) GetAll(ctx context.Context) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// FindOverlapping returns bookings matching the overlap filter. Overlap uses
// strict inequalities, so an interval ending exactly at the window start
// does not conflict.
func (r *BookingRepository) FindOverlapping(ctx context.Context, filter repository.OverlapFilter) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE car_id = $1
		  AND status = ANY($2)
		  AND payment_status = $3
		  AND start_date < $4
		  AND end_date > $5
		  AND ($6 = '' OR id != $6)
	`

	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	rows, err := r.q.QueryContext(ctx, query,
		filter.CarID,
		pq.Array(statuses),
		filter.PaymentStatus,
		filter.WindowEnd,
		filter.WindowStart,
		filter.ExcludeBookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// UpdateStatusIf flips status/paymentStatus only while the booking is still
// in the expected current state. This conditional update is the sole
// concurrency-control mechanism; no in-process locks are held.
func (r *BookingRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.BookingStatus, paymentStatus domain.PaymentStatus) (bool, error) {
	query := `
		UPDATE bookings
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

// Cancel soft-cancels a booking still in a cancellable state.
func (r *BookingRepository) Cancel(ctx context.Context, id string, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $1, cancelled_at = $2, cancel_reason = $3
		WHERE id = $4 AND status IN ($5, $6, $7)
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.BookingStatusCancelled,
		at,
		reason,
		id,
		domain.BookingStatusPending,
		domain.BookingStatusConfirmed,
		domain.BookingStatusActive,
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

// ActivateDue bulk-updates CONFIRMED+PAID bookings whose start date has
// passed to ACTIVE. The status guard in the WHERE clause makes the trigger
// idempotent: a re-run matches nothing it already transitioned.
func (r *BookingRepository) ActivateDue(ctx context.Context, now time.Time) ([]*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $1
		WHERE status = $2 AND payment_status = $3 AND start_date <= $4
		RETURNING ` + bookingColumns

	rows, err := r.q.QueryContext(ctx, query,
		domain.BookingStatusActive,
		domain.BookingStatusConfirmed,
		domain.PaymentStatusPaid,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// CompleteDue bulk-updates ACTIVE+PAID bookings whose effective end has
// passed to COMPLETED. The effective end is the latest ACTIVE+PAID extension
// end across the booking's legs, or the booking's own end date if none.
func (r *BookingRepository) CompleteDue(ctx context.Context, now time.Time) ([]*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $1
		WHERE status = $2 AND payment_status = $3
		  AND COALESCE((
			SELECT MAX(e.end_time)
			FROM extensions e
			JOIN booking_legs l ON l.id = e.booking_leg_id
			WHERE l.booking_id = bookings.id
			  AND e.status = $4
			  AND e.payment_status = $3
		  ), end_date) <= $5
		RETURNING ` + bookingColumns

	rows, err := r.q.QueryContext(ctx, query,
		domain.BookingStatusCompleted,
		domain.BookingStatusActive,
		domain.PaymentStatusPaid,
		domain.ExtensionStatusActive,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var userID sql.NullString
	var chauffeurID sql.NullString
	var cancelledAt sql.NullTime
	var cancelReason sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.CarID,
		&userID,
		&chauffeurID,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.Type,
		&booking.StartDate,
		&booking.EndDate,
		&booking.BookingReference,
		&booking.TotalAmount,
		&booking.CreatedAt,
		&cancelledAt,
		&cancelReason,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		booking.UserID = userID.String
	}
	if chauffeurID.Valid {
		booking.ChauffeurID = chauffeurID.String
	}
	if cancelledAt.Valid {
		booking.CancelledAt = cancelledAt.Time
	}
	if cancelReason.Valid {
		booking.CancelReason = cancelReason.String
	}

	return &booking, nil
}

func collectBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
