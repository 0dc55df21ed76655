package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cabdispatch/internal/domain"
)

// BookingCacheTTL bounds how stale a cached booking can be if an
// invalidation is lost.
const BookingCacheTTL = 30 * time.Second

const bookingCachePrefix = "cache:booking:"

// CacheStore caches booking reads in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client, ttl: BookingCacheTTL}
}

// GetBooking retrieves a booking from cache. A miss returns (nil, nil).
func (s *CacheStore) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	data, err := s.client.Get(ctx, bookingCachePrefix+bookingID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cached cachedBooking
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.toDomain(), nil
}

// SetBooking stores a booking in cache.
func (s *CacheStore) SetBooking(ctx context.Context, booking *domain.Booking) error {
	data, err := json.Marshal(fromDomain(booking))
	if err != nil {
		return err
	}
	return s.client.Set(ctx, bookingCachePrefix+booking.ID, data, s.ttl).Err()
}

// InvalidateBooking removes a booking from cache.
func (s *CacheStore) InvalidateBooking(ctx context.Context, bookingID string) error {
	return s.client.Del(ctx, bookingCachePrefix+bookingID).Err()
}

type cachedLocation struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// cachedBooking is the JSON shape stored in Redis.
type cachedBooking struct {
	ID               string         `json:"id"`
	PassengerID      string         `json:"passenger_id"`
	DriverID         string         `json:"driver_id,omitempty"`
	VehicleID        string         `json:"vehicle_id,omitempty"`
	Pickup           cachedLocation `json:"pickup"`
	Dropoff          cachedLocation `json:"dropoff"`
	ScheduledTime    *time.Time     `json:"scheduled_time,omitempty"`
	Status           string         `json:"status"`
	Distance         *float64       `json:"distance,omitempty"`
	Fare             *float64       `json:"fare,omitempty"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	StartTime        *time.Time     `json:"start_time,omitempty"`
	EndTime          *time.Time     `json:"end_time,omitempty"`
	Version          int64          `json:"version"`
}

func fromDomain(b *domain.Booking) cachedBooking {
	return cachedBooking{
		ID:               b.ID,
		PassengerID:      b.PassengerID,
		DriverID:         b.DriverID,
		VehicleID:        b.VehicleID,
		Pickup:           cachedLocation{Address: b.Pickup.Address, Lat: b.Pickup.Lat, Lon: b.Pickup.Lon},
		Dropoff:          cachedLocation{Address: b.Dropoff.Address, Lat: b.Dropoff.Lat, Lon: b.Dropoff.Lon},
		ScheduledTime:    b.ScheduledTime,
		Status:           string(b.Status),
		Distance:         b.Distance,
		Fare:             b.Fare,
		PaymentStatus:    string(b.PaymentStatus),
		PaymentReference: b.PaymentReference,
		Notes:            b.Notes,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		Version:          b.Version,
	}
}

func (c cachedBooking) toDomain() *domain.Booking {
	return &domain.Booking{
		ID:               c.ID,
		PassengerID:      c.PassengerID,
		DriverID:         c.DriverID,
		VehicleID:        c.VehicleID,
		Pickup:           domain.Location{Address: c.Pickup.Address, Lat: c.Pickup.Lat, Lon: c.Pickup.Lon},
		Dropoff:          domain.Location{Address: c.Dropoff.Address, Lat: c.Dropoff.Lat, Lon: c.Dropoff.Lon},
		ScheduledTime:    c.ScheduledTime,
		Status:           domain.BookingStatus(c.Status),
		Distance:         c.Distance,
		Fare:             c.Fare,
		PaymentStatus:    domain.PaymentStatus(c.PaymentStatus),
		PaymentReference: c.PaymentReference,
		Notes:            c.Notes,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		StartTime:        c.StartTime,
		EndTime:          c.EndTime,
		Version:          c.Version,
	}
}
