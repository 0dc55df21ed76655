package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/hooks"
	"cabdispatch/internal/redis"
	"cabdispatch/internal/repository/memory"
)

var (
	admin      = domain.Actor{ID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}
	passenger  = domain.Actor{ID: "pass-1", Roles: []domain.Role{domain.RolePassenger}}
	passenger2 = domain.Actor{ID: "pass-2", Roles: []domain.Role{domain.RolePassenger}}
	driver1    = domain.Actor{ID: "drv-1", Roles: []domain.Role{domain.RoleDriver}}
	driver2    = domain.Actor{ID: "drv-2", Roles: []domain.Role{domain.RoleDriver}}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []hooks.Event
}

func (p *recordingPublisher) Fire(e hooks.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return true
}

func (p *recordingPublisher) types() []hooks.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]hooks.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() hooks.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fixture struct {
	mem      *memory.Store
	store    *BookingStore
	bookings *BookingService
	vehicles *VehicleService
	users    *UserService
	events   *recordingPublisher
	redis    *miniredis.Miniredis
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	maxRetries int
	withRedis  bool
}

func withMaxRetries(n int) fixtureOption { return func(c *fixtureConfig) { c.maxRetries = n } }

func withRedis() fixtureOption { return func(c *fixtureConfig) { c.withRedis = true } }

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := fixtureConfig{maxRetries: 3}
	for _, o := range opts {
		o(&cfg)
	}

	f := &fixture{
		mem:    memory.NewStore(),
		events: &recordingPublisher{},
	}
	f.store = NewBookingStore(f.mem, StoreConfig{MaxRetries: cfg.maxRetries, OperationTimeout: time.Second})
	registry := NewVehicleRegistry()

	var (
		locker    redis.VehicleLocker
		cache     redis.BookingCache
		locations redis.LocationIndex
	)
	if cfg.withRedis {
		f.redis = miniredis.RunT(t)
		client := goredis.NewClient(&goredis.Options{Addr: f.redis.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		locker = redis.NewLockStore(client)
		cache = redis.NewCacheStore(client)
		locations = redis.NewLocationStore(client)
	}

	f.bookings = NewBookingService(f.store, NewDispatch(registry, locker, time.Second), registry, f.events, cache)
	f.vehicles = NewVehicleService(f.store, registry, locations)
	f.users = NewUserService(f.store)

	f.seed(t)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	users := []*domain.User{
		{ID: "admin-1", Name: "Ada", Phone: "+100", Roles: []domain.Role{domain.RoleAdmin}},
		{ID: "pass-1", Name: "Pia", Phone: "+101", Roles: []domain.Role{domain.RolePassenger}},
		{ID: "pass-2", Name: "Paul", Phone: "+102", Roles: []domain.Role{domain.RolePassenger}},
		{ID: "drv-1", Name: "Dora", Phone: "+201", Roles: []domain.Role{domain.RoleDriver}},
		{ID: "drv-2", Name: "Dan", Phone: "+202", Roles: []domain.Role{domain.RoleDriver}},
		{ID: "drv-3", Name: "Dee", Phone: "+203", Roles: []domain.Role{domain.RoleDriver}}, // no vehicle
	}
	for _, u := range users {
		require.NoError(t, f.mem.Users().Create(ctx, u))
	}

	now := time.Now()
	vehicles := []*domain.Vehicle{
		{ID: "veh-1", LicensePlate: "CAB-001", DriverID: "drv-1", Status: domain.VehicleStatusAvailable, Type: domain.VehicleTypeSedan, Capacity: 4, CreatedAt: now, UpdatedAt: now},
		{ID: "veh-2", LicensePlate: "CAB-002", DriverID: "drv-2", Status: domain.VehicleStatusAvailable, Type: domain.VehicleTypeSUV, Capacity: 6, CreatedAt: now, UpdatedAt: now},
	}
	for _, v := range vehicles {
		require.NoError(t, f.mem.Vehicles().Create(ctx, v))
	}
}

func (f *fixture) createBooking(t *testing.T, passengerID string) *domain.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), CreateBookingRequest{
		PassengerID: passengerID,
		Pickup:      domain.Location{Address: "1 Main St"},
		Dropoff:     domain.Location{Address: "99 Harbour Rd"},
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) confirmedBooking(t *testing.T, driverID string) *domain.Booking {
	t.Helper()
	b := f.createBooking(t, "pass-1")
	b, err := f.bookings.AssignDriver(context.Background(), admin, b.ID, driverID)
	require.NoError(t, err)
	return b
}

func (f *fixture) vehicleStatus(t *testing.T, vehicleID string) domain.VehicleStatus {
	t.Helper()
	v, err := f.mem.Vehicles().GetByID(context.Background(), vehicleID)
	require.NoError(t, err)
	return v.Status
}

func (f *fixture) stored(t *testing.T, bookingID string) *domain.Booking {
	t.Helper()
	b, err := f.mem.Bookings().GetByID(context.Background(), bookingID)
	require.NoError(t, err)
	return b
}
