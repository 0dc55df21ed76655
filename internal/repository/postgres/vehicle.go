package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

const vehicleColumns = `id, license_plate, driver_id, status, vehicle_type, capacity,
	base_fare, rate_per_km, lat, lon, location_updated_at, created_at, updated_at, version`

// Create adds a new vehicle.
func (r *VehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `
		INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
	`

	_, err := r.q.ExecContext(ctx, query,
		vehicle.ID,
		vehicle.LicensePlate,
		vehicle.DriverID,
		vehicle.Status,
		vehicle.Type,
		vehicle.Capacity,
		vehicle.BaseFare,
		vehicle.RatePerKm,
		vehicle.Lat,
		vehicle.Lon,
		vehicle.LocationUpdatedAt,
		vehicle.CreatedAt,
		vehicle.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}

	vehicle.Version = 1
	return nil
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByDriverID retrieves the vehicle assigned to a driver.
func (r *VehicleRepository) GetByDriverID(ctx context.Context, driverID string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE driver_id = $1`
	return r.getOne(ctx, query, driverID)
}

func (r *VehicleRepository) getOne(ctx context.Context, query string, arg string) (*domain.Vehicle, error) {
	vehicle, err := scanVehicle(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return vehicle, nil
}

// ListAvailable retrieves AVAILABLE vehicles, optionally by type.
func (r *VehicleRepository) ListAvailable(ctx context.Context, vehicleType domain.VehicleType) ([]*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles
		WHERE status = $1 AND ($2::text = '' OR vehicle_type = $2::text)
		ORDER BY id LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, domain.VehicleStatusAvailable, string(vehicleType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, rows.Err()
}

// CompareAndSetStatus moves the vehicle to `to` only if its status is in `from`.
// The conditional UPDATE is a single statement, so two callers can never both
// observe AVAILABLE and both win.
func (r *VehicleRepository) CompareAndSetStatus(ctx context.Context, id string, from []domain.VehicleStatus, to domain.VehicleStatus) error {
	query := `
		UPDATE vehicles
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	result, err := r.q.ExecContext(ctx, query, to, id, pq.Array(allowed))
	if err != nil {
		return err
	}

	if err := checkAffected(result); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		found, existsErr := exists(ctx, r.q, "vehicles", id)
		if existsErr != nil {
			return existsErr
		}
		if found {
			return repository.ErrStatusMismatch
		}
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLocation stores the vehicle's last known position.
func (r *VehicleRepository) UpdateLocation(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `UPDATE vehicles SET lat = $1, lon = $2, location_updated_at = $3, updated_at = NOW() WHERE id = $4`

	result, err := r.q.ExecContext(ctx, query, vehicle.Lat, vehicle.Lon, vehicle.LocationUpdatedAt, vehicle.ID)
	if err != nil {
		return err
	}

	return checkAffected(result)
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle

	err := row.Scan(
		&vehicle.ID,
		&vehicle.LicensePlate,
		&vehicle.DriverID,
		&vehicle.Status,
		&vehicle.Type,
		&vehicle.Capacity,
		&vehicle.BaseFare,
		&vehicle.RatePerKm,
		&vehicle.Lat,
		&vehicle.Lon,
		&vehicle.LocationUpdatedAt,
		&vehicle.CreatedAt,
		&vehicle.UpdatedAt,
		&vehicle.Version,
	)
	if err != nil {
		return nil, err
	}

	return &vehicle, nil
}

// Ensure VehicleRepository implements repository.VehicleRepository.
var _ repository.VehicleRepository = (*VehicleRepository)(nil)
