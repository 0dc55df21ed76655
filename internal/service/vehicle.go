package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/logging"
	"cabdispatch/internal/redis"
	"cabdispatch/internal/repository"
)

// VehicleService handles vehicle registration and driver-controlled state.
type VehicleService struct {
	store     *BookingStore
	registry  *VehicleRegistry
	locations redis.LocationIndex
	log       zerolog.Logger
}

// NewVehicleService creates a VehicleService. locations may be nil.
func NewVehicleService(store *BookingStore, registry *VehicleRegistry, locations redis.LocationIndex) *VehicleService {
	return &VehicleService{
		store:     store,
		registry:  registry,
		locations: locations,
		log:       logging.WithComponent("vehicle"),
	}
}

// RegisterVehicleRequest contains the parameters for registering a vehicle.
type RegisterVehicleRequest struct {
	DriverID     string
	LicensePlate string
	Type         domain.VehicleType
	Capacity     int
	BaseFare     *float64
	RatePerKm    *float64
}

// Register adds a vehicle for a driver. Each driver operates at most one
// vehicle and license plates are unique.
func (s *VehicleService) Register(ctx context.Context, actor domain.Actor, req RegisterVehicleRequest) (*domain.Vehicle, error) {
	req.LicensePlate = strings.ToUpper(strings.TrimSpace(req.LicensePlate))
	req.Type = domain.VehicleType(strings.ToUpper(string(req.Type)))

	if err := validateRegisterVehicle(req); err != nil {
		return nil, err
	}
	if !actor.HasRole(domain.RoleAdmin) && !(actor.HasRole(domain.RoleDriver) && actor.ID == req.DriverID) {
		return nil, fmt.Errorf("%w: only administrators or the driver may register a vehicle", ErrForbidden)
	}

	now := time.Now()
	vehicle := &domain.Vehicle{
		ID:           uuid.New().String(),
		LicensePlate: req.LicensePlate,
		DriverID:     req.DriverID,
		Status:       domain.VehicleStatusAvailable,
		Type:         req.Type,
		Capacity:     req.Capacity,
		BaseFare:     req.BaseFare,
		RatePerKm:    req.RatePerKm,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.store.Run(ctx, func(ctx context.Context, tx repository.Store) error {
		driver, err := tx.Users().GetByID(ctx, req.DriverID)
		if err != nil {
			return classify(ctx, err, "driver "+req.DriverID)
		}
		if !driver.HasRole(domain.RoleDriver) {
			return fmt.Errorf("%w: user %s is not a driver", ErrNotFound, req.DriverID)
		}

		if err := tx.Vehicles().Create(ctx, vehicle); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: license plate %s or driver %s already registered", ErrConflict, req.LicensePlate, req.DriverID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("vehicle_id", vehicle.ID).Str("driver_id", vehicle.DriverID).Msg("vehicle registered")
	return vehicle, nil
}

func validateRegisterVehicle(req RegisterVehicleRequest) error {
	if req.DriverID == "" {
		return fmt.Errorf("%w: driver id is required", ErrValidation)
	}
	if req.LicensePlate == "" {
		return fmt.Errorf("%w: license plate is required", ErrValidation)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unknown vehicle type %q", ErrValidation, req.Type)
	}
	if req.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrValidation)
	}
	if (req.BaseFare == nil) != (req.RatePerKm == nil) {
		return fmt.Errorf("%w: base fare and rate per km must be set together", ErrValidation)
	}
	if req.BaseFare != nil && (*req.BaseFare < 0 || *req.RatePerKm < 0) {
		return fmt.Errorf("%w: fares must not be negative", ErrValidation)
	}
	return nil
}

// Get returns a vehicle by ID.
func (s *VehicleService) Get(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	var vehicle *domain.Vehicle
	err := s.store.Read(ctx, func(ctx context.Context, store repository.Store) error {
		v, err := store.Vehicles().GetByID(ctx, vehicleID)
		if err != nil {
			return classify(ctx, err, "vehicle "+vehicleID)
		}
		vehicle = v
		return nil
	})
	return vehicle, err
}

// ListAvailable returns AVAILABLE vehicles, optionally of one type.
func (s *VehicleService) ListAvailable(ctx context.Context, vehicleType domain.VehicleType) ([]*domain.Vehicle, error) {
	vehicleType = domain.VehicleType(strings.ToUpper(string(vehicleType)))

	var vehicles []*domain.Vehicle
	err := s.store.Read(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		vehicles, err = s.registry.ListAvailable(ctx, store, vehicleType)
		return err
	})
	return vehicles, err
}

// SetStatus lets a driver take their vehicle on or off duty. Vehicles that
// are serving a booking cannot be toggled.
func (s *VehicleService) SetStatus(ctx context.Context, actor domain.Actor, vehicleID string, status domain.VehicleStatus) (*domain.Vehicle, error) {
	switch status {
	case domain.VehicleStatusAvailable, domain.VehicleStatusOffline, domain.VehicleStatusMaintenance:
	default:
		return nil, fmt.Errorf("%w: vehicle status %q cannot be set directly", ErrValidation, status)
	}

	var vehicle *domain.Vehicle
	err := s.store.Run(ctx, func(ctx context.Context, tx repository.Store) error {
		v, err := tx.Vehicles().GetByID(ctx, vehicleID)
		if err != nil {
			return classify(ctx, err, "vehicle "+vehicleID)
		}
		if err := canOperate(actor, v); err != nil {
			return err
		}
		if v.Status.Engaged() {
			return fmt.Errorf("%w: vehicle %s is %s", ErrInvalidState, v.ID, v.Status)
		}

		idle := []domain.VehicleStatus{domain.VehicleStatusAvailable, domain.VehicleStatusOffline, domain.VehicleStatusMaintenance}
		if err := tx.Vehicles().CompareAndSetStatus(ctx, v.ID, idle, status); err != nil {
			if errors.Is(err, repository.ErrStatusMismatch) {
				return fmt.Errorf("%w: vehicle %s was dispatched meanwhile", ErrConflict, v.ID)
			}
			return err
		}
		v.Status = status
		vehicle = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status != domain.VehicleStatusAvailable && s.locations != nil {
		if err := s.locations.RemoveLocation(ctx, vehicle.ID); err != nil {
			s.log.Warn().Err(err).Str("vehicle_id", vehicle.ID).Msg("remove vehicle from geo index")
		}
	}
	return vehicle, nil
}

// UpdateLocation records the vehicle's position.
func (s *VehicleService) UpdateLocation(ctx context.Context, actor domain.Actor, vehicleID string, lat, lon float64) (*domain.Vehicle, error) {
	if !isValidLatitude(lat) || !isValidLongitude(lon) {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}

	var vehicle *domain.Vehicle
	err := s.store.Run(ctx, func(ctx context.Context, tx repository.Store) error {
		v, err := tx.Vehicles().GetByID(ctx, vehicleID)
		if err != nil {
			return classify(ctx, err, "vehicle "+vehicleID)
		}
		if err := canOperate(actor, v); err != nil {
			return err
		}

		now := time.Now()
		v.Lat, v.Lon, v.LocationUpdatedAt = &lat, &lon, &now
		if err := tx.Vehicles().UpdateLocation(ctx, v); err != nil {
			return err
		}
		vehicle = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.locations != nil {
		if err := s.locations.UpdateLocation(ctx, vehicle.ID, lat, lon); err != nil {
			s.log.Warn().Err(err).Str("vehicle_id", vehicle.ID).Msg("update vehicle geo index")
		}
	}
	return vehicle, nil
}

// Nearby returns indexed vehicles within radiusKm of the point, closest first.
func (s *VehicleService) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]redis.VehicleLocation, error) {
	if !isValidLatitude(lat) || !isValidLongitude(lon) {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrValidation)
	}
	if radiusKm <= 0 || radiusKm > 50 {
		return nil, fmt.Errorf("%w: radius must be in (0, 50] km", ErrValidation)
	}
	if s.locations == nil {
		return nil, fmt.Errorf("%w: location index is not configured", ErrUnavailable)
	}

	found, err := s.locations.FindNearby(ctx, lat, lon, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("%w: location index: %v", ErrUnavailable, err)
	}
	return found, nil
}

// canOperate reports whether actor may change v.
func canOperate(actor domain.Actor, v *domain.Vehicle) error {
	if actor.HasRole(domain.RoleAdmin) {
		return nil
	}
	if actor.HasRole(domain.RoleDriver) && actor.ID == v.DriverID {
		return nil
	}
	return fmt.Errorf("%w: actor %s does not operate vehicle %s", ErrForbidden, actor.ID, v.ID)
}
