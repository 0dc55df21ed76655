package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/logging"
	"cabdispatch/internal/repository"
)

// VehicleRegistry moves vehicles between availability states. Every move is
// a compare-and-set against the stored status, so two reservations of the
// same vehicle cannot both succeed.
type VehicleRegistry struct {
	log zerolog.Logger
}

// NewVehicleRegistry creates a VehicleRegistry.
func NewVehicleRegistry() *VehicleRegistry {
	return &VehicleRegistry{log: logging.WithComponent("vehicle-registry")}
}

// Reserve moves an AVAILABLE vehicle to BOOKED.
func (r *VehicleRegistry) Reserve(ctx context.Context, tx repository.Store, vehicleID string) error {
	err := tx.Vehicles().CompareAndSetStatus(ctx, vehicleID,
		[]domain.VehicleStatus{domain.VehicleStatusAvailable}, domain.VehicleStatusBooked)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStatusMismatch):
		return fmt.Errorf("%w: vehicle %s is not available", ErrConflict, vehicleID)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
	default:
		return err
	}
}

// MarkInRide moves a BOOKED vehicle to IN_RIDE.
func (r *VehicleRegistry) MarkInRide(ctx context.Context, tx repository.Store, vehicleID string) error {
	err := tx.Vehicles().CompareAndSetStatus(ctx, vehicleID,
		[]domain.VehicleStatus{domain.VehicleStatusBooked}, domain.VehicleStatusInRide)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrStatusMismatch):
		return fmt.Errorf("%w: vehicle %s is not booked", ErrConflict, vehicleID)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
	default:
		return err
	}
}

// Release returns an engaged vehicle to AVAILABLE. Releasing a vehicle that
// is already free, offline, in maintenance or gone is a no-op.
func (r *VehicleRegistry) Release(ctx context.Context, tx repository.Store, vehicleID string) error {
	if vehicleID == "" {
		return nil
	}

	err := tx.Vehicles().CompareAndSetStatus(ctx, vehicleID,
		[]domain.VehicleStatus{domain.VehicleStatusBooked, domain.VehicleStatusInRide}, domain.VehicleStatusAvailable)
	if errors.Is(err, repository.ErrStatusMismatch) || errors.Is(err, repository.ErrNotFound) {
		r.log.Debug().Str("vehicle_id", vehicleID).Err(err).Msg("release skipped")
		return nil
	}
	return err
}

// ListAvailable returns the AVAILABLE vehicles, optionally of one type.
func (r *VehicleRegistry) ListAvailable(ctx context.Context, store repository.Store, vehicleType domain.VehicleType) ([]*domain.Vehicle, error) {
	if vehicleType != "" && !vehicleType.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle type %q", ErrValidation, vehicleType)
	}
	return store.Vehicles().ListAvailable(ctx, vehicleType)
}
