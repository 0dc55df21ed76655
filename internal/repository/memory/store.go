// Package memory is an in-process implementation of repository.Store.
// It serialises transactions behind one mutex and rolls back by restoring
// a snapshot, which gives the same all-or-nothing guarantee as the SQL store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/repository"
)

// Store is an in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	data *state

	updateErrs []error
}

type state struct {
	bookings map[string]*domain.Booking
	vehicles map[string]*domain.Vehicle
	users    map[string]*domain.User
}

func newState() *state {
	return &state{
		bookings: make(map[string]*domain.Booking),
		vehicles: make(map[string]*domain.Vehicle),
		users:    make(map[string]*domain.User),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.bookings {
		c.bookings[k] = v.Clone()
	}
	for k, v := range s.vehicles {
		c.vehicles[k] = v.Clone()
	}
	for k, v := range s.users {
		u := *v
		u.Roles = append([]domain.Role(nil), v.Roles...)
		c.users[k] = &u
	}
	return c
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: newState()}
}

// InjectUpdateErrors makes the next len(errs) booking updates fail with
// errs, in order. It exists for tests that need storage failures.
func (s *Store) InjectUpdateErrors(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErrs = append(s.updateErrs, errs...)
}

// Bookings returns a booking repository that locks per call.
func (s *Store) Bookings() repository.BookingRepository { return &bookingRepo{s: s, locked: false} }

// Vehicles returns a vehicle repository that locks per call.
func (s *Store) Vehicles() repository.VehicleRepository { return &vehicleRepo{s: s, locked: false} }

// Users returns a user repository that locks per call.
func (s *Store) Users() repository.UserRepository { return &userRepo{s: s, locked: false} }

// WithinTx holds the store lock for the duration of fn.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txStore{s: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// txStore is the view handed to WithinTx callbacks; the lock is already held.
type txStore struct {
	s *Store
}

func (t *txStore) Bookings() repository.BookingRepository {
	return &bookingRepo{s: t.s, locked: true}
}
func (t *txStore) Vehicles() repository.VehicleRepository {
	return &vehicleRepo{s: t.s, locked: true}
}
func (t *txStore) Users() repository.UserRepository { return &userRepo{s: t.s, locked: true} }

func (t *txStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return fn(t)
}

// with runs fn with the store lock held unless the caller already holds it.
func (s *Store) with(locked bool, fn func(d *state) error) error {
	if !locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

// ──────────────────────────────────────────────
// BOOKINGS
// ──────────────────────────────────────────────

type bookingRepo struct {
	s      *Store
	locked bool
}

func (r *bookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	return r.s.with(r.locked, func(d *state) error {
		if _, ok := d.bookings[booking.ID]; ok {
			return repository.ErrDuplicate
		}
		booking.Version = 1
		d.bookings[booking.ID] = booking.Clone()
		return nil
	})
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.s.with(r.locked, func(d *state) error {
		b, ok := d.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = b.Clone()
		return nil
	})
	return out, err
}

func (r *bookingRepo) Update(ctx context.Context, booking *domain.Booking) error {
	return r.s.with(r.locked, func(d *state) error {
		if len(r.s.updateErrs) > 0 {
			err := r.s.updateErrs[0]
			r.s.updateErrs = r.s.updateErrs[1:]
			return err
		}
		current, ok := d.bookings[booking.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if current.Version != booking.Version {
			return repository.ErrVersionConflict
		}
		booking.Version++
		d.bookings[booking.ID] = booking.Clone()
		return nil
	})
}

func (r *bookingRepo) List(ctx context.Context, filter repository.BookingFilter) ([]*domain.Booking, error) {
	var out []*domain.Booking
	err := r.s.with(r.locked, func(d *state) error {
		for _, b := range d.bookings {
			if filter.PassengerID != "" && b.PassengerID != filter.PassengerID {
				continue
			}
			if filter.DriverID != "" && b.DriverID != filter.DriverID {
				continue
			}
			if filter.Status != "" && b.Status.Canonical() != filter.Status.Canonical() {
				continue
			}
			out = append(out, b.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

// ──────────────────────────────────────────────
// VEHICLES
// ──────────────────────────────────────────────

type vehicleRepo struct {
	s      *Store
	locked bool
}

func (r *vehicleRepo) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	return r.s.with(r.locked, func(d *state) error {
		for _, v := range d.vehicles {
			if v.LicensePlate == vehicle.LicensePlate || v.DriverID == vehicle.DriverID {
				return repository.ErrDuplicate
			}
		}
		vehicle.Version = 1
		d.vehicles[vehicle.ID] = vehicle.Clone()
		return nil
	})
}

func (r *vehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := r.s.with(r.locked, func(d *state) error {
		v, ok := d.vehicles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = v.Clone()
		return nil
	})
	return out, err
}

func (r *vehicleRepo) GetByDriverID(ctx context.Context, driverID string) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := r.s.with(r.locked, func(d *state) error {
		for _, v := range d.vehicles {
			if v.DriverID == driverID {
				out = v.Clone()
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *vehicleRepo) ListAvailable(ctx context.Context, vehicleType domain.VehicleType) ([]*domain.Vehicle, error) {
	var out []*domain.Vehicle
	err := r.s.with(r.locked, func(d *state) error {
		for _, v := range d.vehicles {
			if v.Status != domain.VehicleStatusAvailable {
				continue
			}
			if vehicleType != "" && v.Type != vehicleType {
				continue
			}
			out = append(out, v.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *vehicleRepo) CompareAndSetStatus(ctx context.Context, id string, from []domain.VehicleStatus, to domain.VehicleStatus) error {
	return r.s.with(r.locked, func(d *state) error {
		v, ok := d.vehicles[id]
		if !ok {
			return repository.ErrNotFound
		}
		for _, f := range from {
			if v.Status == f {
				v.Status = to
				v.Version++
				v.UpdatedAt = time.Now()
				return nil
			}
		}
		return repository.ErrStatusMismatch
	})
}

func (r *vehicleRepo) UpdateLocation(ctx context.Context, vehicle *domain.Vehicle) error {
	return r.s.with(r.locked, func(d *state) error {
		v, ok := d.vehicles[vehicle.ID]
		if !ok {
			return repository.ErrNotFound
		}
		c := vehicle.Clone()
		v.Lat, v.Lon, v.LocationUpdatedAt = c.Lat, c.Lon, c.LocationUpdatedAt
		v.UpdatedAt = time.Now()
		return nil
	})
}

// ──────────────────────────────────────────────
// USERS
// ──────────────────────────────────────────────

type userRepo struct {
	s      *Store
	locked bool
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.s.with(r.locked, func(d *state) error {
		for _, u := range d.users {
			if u.Phone != "" && u.Phone == user.Phone {
				return repository.ErrDuplicate
			}
		}
		u := *user
		u.Roles = append([]domain.Role(nil), user.Roles...)
		d.users[user.ID] = &u
		return nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.with(r.locked, func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := *u
		c.Roles = append([]domain.Role(nil), u.Roles...)
		out = &c
		return nil
	})
	return out, err
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
