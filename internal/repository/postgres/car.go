package postgres

import (
	"context"
	"database/sql"
	"errors"

	"hyre/internal/domain"
	"hyre/internal/repository"
)

// CarRepository is a PostgreSQL implementation of repository.CarRepository.
type CarRepository struct {
	q Querier
}

// NewCarRepository creates a new PostgreSQL car repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{q: db}
}

// Create persists a new car.
func (r *CarRepository) Create(ctx context.Context, car *domain.Car) error {
	query := `
		INSERT INTO cars (id, name, chauffeur_id, approval_status, status, rate_per_hour, rate_per_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		car.ID,
		car.Name,
		car.ChauffeurID,
		car.ApprovalStatus,
		car.Status,
		car.RatePerHour,
		car.RatePerDay,
	)

	return err
}

// GetByID retrieves a car by ID.
func (r *CarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	query := `
		SELECT id, name, chauffeur_id, approval_status, status, rate_per_hour, rate_per_day
		FROM cars WHERE id = $1
	`

	var car domain.Car
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&car.ID,
		&car.Name,
		&car.ChauffeurID,
		&car.ApprovalStatus,
		&car.Status,
		&car.RatePerHour,
		&car.RatePerDay,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &car, nil
}

// GetAll retrieves all cars.
func (r *CarRepository) GetAll(ctx context.Context) ([]*domain.Car, error) {
	query := `
		SELECT id, name, chauffeur_id, approval_status, status, rate_per_hour, rate_per_day
		FROM cars ORDER BY name ASC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []*domain.Car
	for rows.Next() {
		var car domain.Car
		if err := rows.Scan(
			&car.ID,
			&car.Name,
			&car.ChauffeurID,
			&car.ApprovalStatus,
			&car.Status,
			&car.RatePerHour,
			&car.RatePerDay,
		); err != nil {
			return nil, err
		}
		cars = append(cars, &car)
	}

	return cars, rows.Err()
}

// Ensure CarRepository implements repository.CarRepository.
var _ repository.CarRepository = (*CarRepository)(nil)
