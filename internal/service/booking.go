package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/hooks"
	"cabdispatch/internal/logging"
	"cabdispatch/internal/metrics"
	"cabdispatch/internal/policy"
	"cabdispatch/internal/redis"
	"cabdispatch/internal/repository"
)

// EventPublisher receives lifecycle events after they commit.
type EventPublisher interface {
	Fire(e hooks.Event) bool
}

// BookingService is the booking state machine.
type BookingService struct {
	store    *BookingStore
	dispatch *Dispatch
	registry *VehicleRegistry
	events   EventPublisher
	cache    redis.BookingCache
	log      zerolog.Logger
	now      func() time.Time
}

// NewBookingService creates a BookingService. events and cache may be nil.
func NewBookingService(
	store *BookingStore,
	dispatch *Dispatch,
	registry *VehicleRegistry,
	events EventPublisher,
	cache redis.BookingCache,
) *BookingService {
	return &BookingService{
		store:    store,
		dispatch: dispatch,
		registry: registry,
		events:   events,
		cache:    cache,
		log:      logging.WithComponent("booking"),
		now:      time.Now,
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	PassengerID   string
	Pickup        domain.Location
	Dropoff       domain.Location
	ScheduledTime *time.Time
	Distance      *float64
	Fare          *float64
	Notes         string
}

// Create records a new PENDING booking for a passenger.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if err := s.validateCreateRequest(req); err != nil {
		metrics.RecordRejection("create", kindLabel(err))
		return nil, err
	}

	now := s.now()
	booking := &domain.Booking{
		ID:            uuid.New().String(),
		PassengerID:   req.PassengerID,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		ScheduledTime: req.ScheduledTime,
		Status:        domain.BookingStatusPending,
		Distance:      req.Distance,
		Fare:          req.Fare,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.store.Run(ctx, func(ctx context.Context, tx repository.Store) error {
		passenger, err := tx.Users().GetByID(ctx, req.PassengerID)
		if err != nil {
			return classify(ctx, err, "passenger "+req.PassengerID)
		}
		if !passenger.HasRole(domain.RolePassenger) {
			return fmt.Errorf("%w: user %s is not a passenger", ErrNotFound, req.PassengerID)
		}
		return tx.Bookings().Create(ctx, booking)
	})
	if err != nil {
		metrics.RecordRejection("create", kindLabel(err))
		return nil, err
	}

	metrics.RecordTransition("NEW", string(booking.Status))
	s.log.Info().Str("booking_id", booking.ID).Str("passenger_id", booking.PassengerID).Msg("booking created")
	return booking, nil
}

func (s *BookingService) validateCreateRequest(req CreateBookingRequest) error {
	if req.PassengerID == "" {
		return fmt.Errorf("%w: passenger id is required", ErrValidation)
	}
	if err := validateLocation("pickup", req.Pickup); err != nil {
		return err
	}
	if err := validateLocation("dropoff", req.Dropoff); err != nil {
		return err
	}
	if req.ScheduledTime != nil && req.ScheduledTime.Before(s.now().Add(-time.Minute)) {
		return fmt.Errorf("%w: scheduled time is in the past", ErrValidation)
	}
	if req.Distance != nil && *req.Distance < 0 {
		return fmt.Errorf("%w: distance must not be negative", ErrValidation)
	}
	if req.Fare != nil && *req.Fare < 0 {
		return fmt.Errorf("%w: fare must not be negative", ErrValidation)
	}
	return nil
}

func validateLocation(field string, loc domain.Location) error {
	if strings.TrimSpace(loc.Address) == "" {
		return fmt.Errorf("%w: %s address is required", ErrValidation, field)
	}
	if (loc.Lat == nil) != (loc.Lon == nil) {
		return fmt.Errorf("%w: %s needs both latitude and longitude", ErrValidation, field)
	}
	if loc.Lat != nil && (!isValidLatitude(*loc.Lat) || !isValidLongitude(*loc.Lon)) {
		return fmt.Errorf("%w: %s coordinates out of range", ErrValidation, field)
	}
	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

// AssignDriver binds a PENDING booking to driverID and their vehicle and
// confirms it. Administrators may assign any driver; a driver may only
// assign themselves.
func (s *BookingService) AssignDriver(ctx context.Context, actor domain.Actor, bookingID, driverID string) (*domain.Booking, error) {
	booking, err := s.assignDriver(ctx, actor, bookingID, driverID)
	if err != nil {
		metrics.RecordRejection("assign", kindLabel(err))
		metrics.RecordDispatch(kindLabel(err))
		return nil, err
	}
	metrics.RecordDispatch("assigned")
	return booking, nil
}

func (s *BookingService) assignDriver(ctx context.Context, actor domain.Actor, bookingID, driverID string) (*domain.Booking, error) {
	if d := policy.CanAssign(actor, driverID); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
	}

	// Cheap checks before taking the lock: the booking must be PENDING and
	// the driver must resolve to a free vehicle.
	current, err := s.store.Load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status.Canonical() != domain.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking %s is %s", ErrInvalidState, bookingID, current.Status)
	}

	var vehicle *domain.Vehicle
	err = s.store.Read(ctx, func(ctx context.Context, store repository.Store) error {
		_, v, err := s.dispatch.ResolveDriver(ctx, store, driverID)
		vehicle = v
		return err
	})
	if err != nil {
		return nil, err
	}
	if vehicle.Status != domain.VehicleStatusAvailable {
		return nil, fmt.Errorf("%w: vehicle %s is %s", ErrConflict, vehicle.ID, vehicle.Status)
	}

	release, err := s.dispatch.Lock(ctx, vehicle.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var prev domain.BookingStatus
	booking, err := s.store.Apply(ctx, bookingID, func(ctx context.Context, tx repository.Store, b *domain.Booking) error {
		if b.Status.Canonical() != domain.BookingStatusPending {
			return fmt.Errorf("%w: booking %s is %s", ErrInvalidState, b.ID, b.Status)
		}
		if _, err := s.dispatch.Bind(ctx, tx, b, driverID); err != nil {
			return err
		}
		prev = b.Status
		b.Status = domain.BookingStatusConfirmed
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, prev, booking, actor.ID, "", "", "")
	return booking, nil
}

// ChangeStatus moves a booking to target on behalf of actor. CONFIRMED can
// only be reached through AssignDriver.
func (s *BookingService) ChangeStatus(ctx context.Context, actor domain.Actor, bookingID string, target domain.BookingStatus) (*domain.Booking, error) {
	if !target.Valid() {
		err := fmt.Errorf("%w: unknown status %q", ErrValidation, target)
		metrics.RecordRejection("change_status", kindLabel(err))
		return nil, err
	}
	target = target.Canonical()

	var prev domain.BookingStatus
	var prevDriver, prevVehicle string
	booking, err := s.store.Apply(ctx, bookingID, func(ctx context.Context, tx repository.Store, b *domain.Booking) error {
		if !policy.Related(actor, b) {
			return fmt.Errorf("%w: actor %s has no access to booking %s", ErrForbidden, actor.ID, b.ID)
		}
		if b.Status.IsTerminal() {
			return fmt.Errorf("%w: booking %s is %s", ErrInvalidState, b.ID, b.Status)
		}
		if d := policy.Decide(actor, b, target); !d.Allowed {
			return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
		}
		if target == domain.BookingStatusConfirmed {
			return fmt.Errorf("%w: bookings are confirmed by assigning a driver", ErrInvalidState)
		}
		if !domain.CanTransition(b.Status, target) {
			return fmt.Errorf("%w: cannot move booking from %s to %s", ErrInvalidState, b.Status, target)
		}

		prev, prevDriver, prevVehicle = b.Status, b.DriverID, b.VehicleID
		return s.transition(ctx, tx, b, target)
	})
	if err != nil {
		metrics.RecordRejection("change_status", kindLabel(err))
		return nil, err
	}

	s.committed(ctx, prev, booking, actor.ID, "", prevDriver, prevVehicle)
	return booking, nil
}

// StartRide moves a CONFIRMED booking to IN_PROGRESS for its assigned driver.
func (s *BookingService) StartRide(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	return s.driverTransition(ctx, "start", bookingID, driverID,
		domain.BookingStatusConfirmed, domain.BookingStatusInProgress)
}

// CompleteRide moves an IN_PROGRESS booking to COMPLETED for its assigned
// driver, frees the vehicle and requests payment settlement.
func (s *BookingService) CompleteRide(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	return s.driverTransition(ctx, "complete", bookingID, driverID,
		domain.BookingStatusInProgress, domain.BookingStatusCompleted)
}

func (s *BookingService) driverTransition(ctx context.Context, op, bookingID, driverID string, from, to domain.BookingStatus) (*domain.Booking, error) {
	if driverID == "" {
		err := fmt.Errorf("%w: driver id is required", ErrValidation)
		metrics.RecordRejection(op, kindLabel(err))
		return nil, err
	}

	var prev domain.BookingStatus
	booking, err := s.store.Apply(ctx, bookingID, func(ctx context.Context, tx repository.Store, b *domain.Booking) error {
		if b.Status.Canonical() != from {
			return fmt.Errorf("%w: booking %s is %s, want %s", ErrInvalidState, b.ID, b.Status, from)
		}
		if b.DriverID != driverID {
			return fmt.Errorf("%w: booking %s is not assigned to driver %s", ErrInvalidState, b.ID, driverID)
		}
		prev = b.Status
		return s.transition(ctx, tx, b, to)
	})
	if err != nil {
		metrics.RecordRejection(op, kindLabel(err))
		return nil, err
	}

	s.committed(ctx, prev, booking, driverID, "", "", "")
	return booking, nil
}

// Cancel cancels a booking that has not started yet.
func (s *BookingService) Cancel(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error) {
	reason = strings.TrimSpace(reason)

	var prev domain.BookingStatus
	var prevDriver, prevVehicle string
	booking, err := s.store.Apply(ctx, bookingID, func(ctx context.Context, tx repository.Store, b *domain.Booking) error {
		if !policy.Related(actor, b) {
			return fmt.Errorf("%w: actor %s has no access to booking %s", ErrForbidden, actor.ID, b.ID)
		}
		if !b.Status.Cancellable() {
			return fmt.Errorf("%w: booking %s is %s and can no longer be cancelled", ErrInvalidState, b.ID, b.Status)
		}
		if d := policy.Decide(actor, b, domain.BookingStatusCancelled); !d.Allowed {
			return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
		}

		prev, prevDriver, prevVehicle = b.Status, b.DriverID, b.VehicleID
		if reason != "" {
			b.Notes = appendNote(b.Notes, "cancelled: "+reason)
		}
		return s.transition(ctx, tx, b, domain.BookingStatusCancelled)
	})
	if err != nil {
		metrics.RecordRejection("cancel", kindLabel(err))
		return nil, err
	}

	s.committed(ctx, prev, booking, actor.ID, reason, prevDriver, prevVehicle)
	return booking, nil
}

// RecordPayment stores the outcome of a payment attempt. It does not change
// the booking status.
func (s *BookingService) RecordPayment(ctx context.Context, bookingID string, succeeded bool, reference string) (*domain.Booking, error) {
	reference = strings.TrimSpace(reference)
	if succeeded && reference == "" {
		return nil, fmt.Errorf("%w: a successful payment needs a reference", ErrValidation)
	}

	booking, err := s.store.Apply(ctx, bookingID, func(ctx context.Context, tx repository.Store, b *domain.Booking) error {
		if succeeded {
			b.PaymentStatus = domain.PaymentStatusPaid
		} else {
			b.PaymentStatus = domain.PaymentStatusFailed
		}
		if reference != "" {
			b.PaymentReference = reference
		}
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		metrics.RecordRejection("payment", kindLabel(err))
		return nil, err
	}

	s.invalidate(ctx, booking.ID)
	s.log.Info().
		Str("booking_id", booking.ID).
		Str("payment_status", string(booking.PaymentStatus)).
		Msg("payment recorded")
	return booking, nil
}

// Get returns a booking the actor is related to.
func (s *BookingService) Get(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	booking := s.cached(ctx, bookingID)
	if booking == nil {
		var err error
		booking, err = s.store.Load(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetBooking(ctx, booking); err != nil {
				s.log.Debug().Err(err).Str("booking_id", bookingID).Msg("cache booking")
			}
		}
	}

	if d := policy.CanView(actor, booking); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
	}
	return booking, nil
}

// ListBookingsRequest narrows a booking listing.
type ListBookingsRequest struct {
	PassengerID string
	DriverID    string
	Status      domain.BookingStatus
	Limit       int
}

// List returns bookings visible to actor. Administrators see everything;
// passengers and drivers only see their own bookings.
func (s *BookingService) List(ctx context.Context, actor domain.Actor, req ListBookingsRequest) ([]*domain.Booking, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
	}
	if req.Limit < 0 || req.Limit > 500 {
		return nil, fmt.Errorf("%w: limit must be between 0 and 500", ErrValidation)
	}

	filter := repository.BookingFilter{
		PassengerID: req.PassengerID,
		DriverID:    req.DriverID,
		Status:      req.Status,
		Limit:       req.Limit,
	}

	if !actor.HasRole(domain.RoleAdmin) {
		switch {
		case filter.PassengerID == "" && filter.DriverID == "":
			if actor.HasRole(domain.RolePassenger) {
				filter.PassengerID = actor.ID
			} else if actor.HasRole(domain.RoleDriver) {
				filter.DriverID = actor.ID
			} else {
				return nil, fmt.Errorf("%w: actor %s cannot list bookings", ErrForbidden, actor.ID)
			}
		case filter.PassengerID != "" && (filter.PassengerID != actor.ID || !actor.HasRole(domain.RolePassenger)):
			return nil, fmt.Errorf("%w: cannot list another passenger's bookings", ErrForbidden)
		case filter.DriverID != "" && (filter.DriverID != actor.ID || !actor.HasRole(domain.RoleDriver)):
			return nil, fmt.Errorf("%w: cannot list another driver's bookings", ErrForbidden)
		}
	}

	var bookings []*domain.Booking
	err := s.store.Read(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		bookings, err = store.Bookings().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListAvailableVehicles returns the vehicles that can take a booking now.
func (s *BookingService) ListAvailableVehicles(ctx context.Context, vehicleType domain.VehicleType) ([]*domain.Vehicle, error) {
	var vehicles []*domain.Vehicle
	err := s.store.Read(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		vehicles, err = s.dispatch.ListAvailableVehicles(ctx, store, vehicleType)
		return err
	})
	return vehicles, err
}

// transition applies target to b together with its side effects on the
// vehicle. The caller has already checked that the move is allowed.
func (s *BookingService) transition(ctx context.Context, tx repository.Store, b *domain.Booking, target domain.BookingStatus) error {
	now := s.now()

	switch target {
	case domain.BookingStatusInProgress:
		if b.VehicleID == "" {
			return fmt.Errorf("%w: booking %s has no vehicle", ErrInvalidState, b.ID)
		}
		if err := s.registry.MarkInRide(ctx, tx, b.VehicleID); err != nil {
			return err
		}
		b.StartTime = &now

	case domain.BookingStatusCompleted:
		if err := s.registry.Release(ctx, tx, b.VehicleID); err != nil {
			return err
		}
		b.EndTime = &now

	case domain.BookingStatusCancelled:
		if err := s.registry.Release(ctx, tx, b.VehicleID); err != nil {
			return err
		}
		b.EndTime = &now

	case domain.BookingStatusRejected:
		if err := s.registry.Release(ctx, tx, b.VehicleID); err != nil {
			return err
		}

	case domain.BookingStatusPending:
		b.StartTime = nil
	}

	if !target.HasDriver() {
		b.DriverID, b.VehicleID = "", ""
	}
	b.Status = target
	b.UpdatedAt = now
	return nil
}

// committed runs everything that must only happen once a transition is durable.
func (s *BookingService) committed(ctx context.Context, prev domain.BookingStatus, b *domain.Booking, actorID, reason, prevDriver, prevVehicle string) {
	metrics.RecordTransition(string(prev.Canonical()), string(b.Status))
	s.invalidate(ctx, b.ID)

	s.log.Info().
		Str("booking_id", b.ID).
		Str("from", string(prev)).
		Str("to", string(b.Status)).
		Str("actor_id", actorID).
		Msg("booking transitioned")

	if s.events == nil {
		return
	}
	eventType, ok := hooks.EventForStatus(b.Status)
	if !ok {
		return
	}
	s.events.Fire(hooks.NewEvent(eventType, b, prevDriver, prevVehicle, actorID, reason))
}

func (s *BookingService) cached(ctx context.Context, bookingID string) *domain.Booking {
	if s.cache == nil {
		return nil
	}
	b, err := s.cache.GetBooking(ctx, bookingID)
	if err != nil {
		s.log.Debug().Err(err).Str("booking_id", bookingID).Msg("booking cache read")
		return nil
	}
	return b
}

func (s *BookingService) invalidate(ctx context.Context, bookingID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBooking(ctx, bookingID); err != nil {
		s.log.Warn().Err(err).Str("booking_id", bookingID).Msg("invalidate booking cache")
	}
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
