package repository

import (
	"context"

	"hyre/internal/domain"
)

// CarRepository defines the persistence operations for cars.
type CarRepository interface {
	// Create persists a new car.
	Create(ctx context.Context, car *domain.Car) error

	// GetByID retrieves a car by ID.
	GetByID(ctx context.Context, id string) (*domain.Car, error)

	// GetAll retrieves all cars.
	GetAll(ctx context.Context) ([]*domain.Car, error)
}
