package repository

import (
	"context"

	"cabdispatch/internal/domain"
)

// VehicleRepository defines the persistence operations for vehicles.
type VehicleRepository interface {
	// Create adds a new vehicle. A taken license plate or driver yields ErrDuplicate.
	Create(ctx context.Context, vehicle *domain.Vehicle) error

	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// GetByDriverID retrieves the vehicle assigned to a driver.
	GetByDriverID(ctx context.Context, driverID string) (*domain.Vehicle, error)

	// ListAvailable retrieves AVAILABLE vehicles, optionally restricted to one type.
	ListAvailable(ctx context.Context, vehicleType domain.VehicleType) ([]*domain.Vehicle, error)

	// CompareAndSetStatus atomically moves the vehicle to `to` if its current status
	// is one of `from`. Otherwise it returns ErrStatusMismatch, or ErrNotFound.
	CompareAndSetStatus(ctx context.Context, id string, from []domain.VehicleStatus, to domain.VehicleStatus) error

	// UpdateLocation stores the vehicle's last known position.
	UpdateLocation(ctx context.Context, vehicle *domain.Vehicle) error
}
