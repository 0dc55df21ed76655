package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/logging"
	"cabdispatch/internal/metrics"
	"cabdispatch/internal/redis"
	"cabdispatch/internal/repository"
)

const defaultDispatchLockTTL = 5 * time.Second

// Dispatch binds drivers to bookings. A Redis lock per vehicle turns away a
// second concurrent dispatch early; the registry's compare-and-set inside
// the booking transaction is what actually guarantees a single winner.
type Dispatch struct {
	registry *VehicleRegistry
	locker   redis.VehicleLocker
	lockTTL  time.Duration
	log      zerolog.Logger
}

// NewDispatch creates a Dispatch. locker may be nil, in which case only the
// storage compare-and-set serialises dispatches.
func NewDispatch(registry *VehicleRegistry, locker redis.VehicleLocker, lockTTL time.Duration) *Dispatch {
	if lockTTL <= 0 {
		lockTTL = defaultDispatchLockTTL
	}
	return &Dispatch{
		registry: registry,
		locker:   locker,
		lockTTL:  lockTTL,
		log:      logging.WithComponent("dispatch"),
	}
}

// ResolveDriver returns the driver user and the vehicle they operate.
func (d *Dispatch) ResolveDriver(ctx context.Context, store repository.Store, driverID string) (*domain.User, *domain.Vehicle, error) {
	if driverID == "" {
		return nil, nil, fmt.Errorf("%w: driver id is required", ErrValidation)
	}

	user, err := store.Users().GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: driver %s", ErrNotFound, driverID)
		}
		return nil, nil, err
	}
	if !user.HasRole(domain.RoleDriver) {
		return nil, nil, fmt.Errorf("%w: user %s is not a driver", ErrNotFound, driverID)
	}

	vehicle, err := store.Vehicles().GetByDriverID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: driver %s has no vehicle", ErrNotFound, driverID)
		}
		return nil, nil, err
	}

	return user, vehicle, nil
}

// Lock takes the dispatch lock for vehicleID. When Redis is unreachable the
// lock is skipped and the returned release is a no-op.
func (d *Dispatch) Lock(ctx context.Context, vehicleID string) (func(), error) {
	noop := func() {}
	if d.locker == nil {
		return noop, nil
	}

	token := uuid.New().String()
	ok, err := d.locker.AcquireVehicleLock(ctx, vehicleID, token, d.lockTTL)
	if err != nil {
		d.log.Warn().Err(err).Str("vehicle_id", vehicleID).Msg("dispatch lock unavailable, relying on storage")
		return noop, nil
	}
	if !ok {
		metrics.RecordDispatch("locked")
		return nil, fmt.Errorf("%w: vehicle %s is being dispatched", ErrConflict, vehicleID)
	}

	return func() {
		// The caller's context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := d.locker.ReleaseVehicleLock(releaseCtx, vehicleID, token); err != nil {
			d.log.Warn().Err(err).Str("vehicle_id", vehicleID).Msg("release dispatch lock")
		}
	}, nil
}

// Bind reserves the driver's vehicle and attaches both to b inside tx.
// Nothing is written to b unless the reservation succeeds.
func (d *Dispatch) Bind(ctx context.Context, tx repository.Store, b *domain.Booking, driverID string) (*domain.Vehicle, error) {
	_, vehicle, err := d.ResolveDriver(ctx, tx, driverID)
	if err != nil {
		return nil, err
	}
	if vehicle.Status != domain.VehicleStatusAvailable {
		return nil, fmt.Errorf("%w: vehicle %s is %s", ErrConflict, vehicle.ID, vehicle.Status)
	}
	if err := d.registry.Reserve(ctx, tx, vehicle.ID); err != nil {
		return nil, err
	}

	b.DriverID = driverID
	b.VehicleID = vehicle.ID
	return vehicle, nil
}

// ListAvailableVehicles returns vehicles that can take a booking right now.
func (d *Dispatch) ListAvailableVehicles(ctx context.Context, store repository.Store, vehicleType domain.VehicleType) ([]*domain.Vehicle, error) {
	return d.registry.ListAvailable(ctx, store, vehicleType)
}
