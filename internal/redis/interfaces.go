package redis

import (
	"context"
	"time"

	"cabdispatch/internal/domain"
)

// LocationIndex defines the interface for vehicle position tracking.
type LocationIndex interface {
	UpdateLocation(ctx context.Context, vehicleID string, lat, lng float64) error
	FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]VehicleLocation, error)
	RemoveLocation(ctx context.Context, vehicleID string) error
}

// VehicleLocker defines the interface for dispatch locking.
type VehicleLocker interface {
	AcquireVehicleLock(ctx context.Context, vehicleID, token string, ttl time.Duration) (bool, error)
	ReleaseVehicleLock(ctx context.Context, vehicleID, token string) error
}

// BookingCache defines the interface for booking read caching.
type BookingCache interface {
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	SetBooking(ctx context.Context, booking *domain.Booking) error
	InvalidateBooking(ctx context.Context, bookingID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationIndex = (*LocationStore)(nil)
	_ VehicleLocker = (*LockStore)(nil)
	_ BookingCache  = (*CacheStore)(nil)
)
