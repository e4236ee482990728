package postgres

import (
	"context"
	"database/sql"

	"hyre/internal/domain"
	"hyre/internal/repository"
)

// BookingLegRepository is a PostgreSQL implementation of repository.BookingLegRepository.
type BookingLegRepository struct {
	q Querier
}

// NewBookingLegRepository creates a new PostgreSQL booking leg repository.
func NewBookingLegRepository(db *sql.DB) *BookingLegRepository {
	return &BookingLegRepository{q: db}
}

// NewBookingLegRepositoryWithTx creates a booking leg repository using a transaction.
func NewBookingLegRepositoryWithTx(tx *sql.Tx) *BookingLegRepository {
	return &BookingLegRepository{q: tx}
}

// Create persists a new leg.
func (r *BookingLegRepository) Create(ctx context.Context, leg *domain.BookingLeg) error {
	query := `
		INSERT INTO booking_legs (id, booking_id, leg_date, leg_start_time, leg_end_time)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.ExecContext(ctx, query,
		leg.ID,
		leg.BookingID,
		leg.LegDate,
		leg.LegStartTime,
		leg.LegEndTime,
	)

	return err
}

// GetByBookingID retrieves all legs of a booking ordered by leg date.
func (r *BookingLegRepository) GetByBookingID(ctx context.Context, bookingID string) ([]*domain.BookingLeg, error) {
	query := `
		SELECT id, booking_id, leg_date, leg_start_time, leg_end_time
		FROM booking_legs
		WHERE booking_id = $1
		ORDER BY leg_date ASC
	`

	rows, err := r.q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []*domain.BookingLeg
	for rows.Next() {
		var leg domain.BookingLeg
		if err := rows.Scan(
			&leg.ID,
			&leg.BookingID,
			&leg.LegDate,
			&leg.LegStartTime,
			&leg.LegEndTime,
		); err != nil {
			return nil, err
		}
		legs = append(legs, &leg)
	}

	return legs, rows.Err()
}

// Ensure BookingLegRepository implements repository.BookingLegRepository.
var _ repository.BookingLegRepository = (*BookingLegRepository)(nil)
