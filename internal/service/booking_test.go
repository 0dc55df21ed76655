package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/hooks"
	"cabdispatch/internal/repository"
)

func TestBookingLifecycle_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.createBooking(t, "pass-1")
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, b.PaymentStatus)
	assert.Empty(t, b.DriverID)
	assert.Nil(t, b.StartTime)

	b, err := f.bookings.AssignDriver(ctx, admin, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.Equal(t, "drv-1", b.DriverID)
	assert.Equal(t, "veh-1", b.VehicleID)
	assert.Equal(t, domain.VehicleStatusBooked, f.vehicleStatus(t, "veh-1"))

	b, err = f.bookings.StartRide(ctx, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusInProgress, b.Status)
	require.NotNil(t, b.StartTime)
	assert.Nil(t, b.EndTime)
	assert.Equal(t, domain.VehicleStatusInRide, f.vehicleStatus(t, "veh-1"))

	// A repeated start is refused rather than applied twice.
	_, err = f.bookings.StartRide(ctx, b.ID, "drv-1")
	assert.ErrorIs(t, err, ErrInvalidState)

	b, err = f.bookings.CompleteRide(ctx, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	require.NotNil(t, b.EndTime)
	assert.False(t, b.EndTime.Before(*b.StartTime))
	assert.Equal(t, "drv-1", b.DriverID)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, "veh-1"))

	assert.Equal(t, []hooks.EventType{
		hooks.EventBookingConfirmed,
		hooks.EventBookingStarted,
		hooks.EventBookingCompleted,
	}, f.events.types())

	// Terminal bookings are immutable.
	_, err = f.bookings.Cancel(ctx, passenger, b.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.bookings.ChangeStatus(ctx, admin, b.ID, domain.BookingStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lat, lon := 40.7, -74.0
	bad := 200.0
	neg := -1.0
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		req  CreateBookingRequest
		want error
	}{
		{"missing passenger", CreateBookingRequest{Pickup: domain.Location{Address: "a"}, Dropoff: domain.Location{Address: "b"}}, ErrValidation},
		{"missing pickup", CreateBookingRequest{PassengerID: "pass-1", Dropoff: domain.Location{Address: "b"}}, ErrValidation},
		{"half coordinates", CreateBookingRequest{PassengerID: "pass-1", Pickup: domain.Location{Address: "a", Lat: &lat}, Dropoff: domain.Location{Address: "b"}}, ErrValidation},
		{"latitude out of range", CreateBookingRequest{PassengerID: "pass-1", Pickup: domain.Location{Address: "a", Lat: &bad, Lon: &lon}, Dropoff: domain.Location{Address: "b"}}, ErrValidation},
		{"negative fare", CreateBookingRequest{PassengerID: "pass-1", Pickup: domain.Location{Address: "a"}, Dropoff: domain.Location{Address: "b"}, Fare: &neg}, ErrValidation},
		{"scheduled in past", CreateBookingRequest{PassengerID: "pass-1", Pickup: domain.Location{Address: "a"}, Dropoff: domain.Location{Address: "b"}, ScheduledTime: &past}, ErrValidation},
		{"unknown passenger", CreateBookingRequest{PassengerID: "ghost", Pickup: domain.Location{Address: "a"}, Dropoff: domain.Location{Address: "b"}}, ErrNotFound},
		{"driver is not a passenger", CreateBookingRequest{PassengerID: "drv-1", Pickup: domain.Location{Address: "a"}, Dropoff: domain.Location{Address: "b"}}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	b, err := f.bookings.Create(ctx, CreateBookingRequest{
		PassengerID: "pass-1",
		Pickup:      domain.Location{Address: "a", Lat: &lat, Lon: &lon},
		Dropoff:     domain.Location{Address: "b"},
		Notes:       "  two suitcases ",
	})
	require.NoError(t, err)
	assert.Equal(t, "two suitcases", b.Notes)
	assert.Equal(t, int64(1), b.Version)
}

func TestAssignDriver_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("passenger may not assign", func(t *testing.T) {
		b := f.createBooking(t, "pass-1")
		_, err := f.bookings.AssignDriver(ctx, passenger, b.ID, "drv-1")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("driver may not assign someone else", func(t *testing.T) {
		b := f.createBooking(t, "pass-1")
		_, err := f.bookings.AssignDriver(ctx, driver1, b.ID, "drv-2")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.bookings.AssignDriver(ctx, admin, "nope", "drv-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown driver", func(t *testing.T) {
		b := f.createBooking(t, "pass-1")
		_, err := f.bookings.AssignDriver(ctx, admin, b.ID, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("user without driver role", func(t *testing.T) {
		b := f.createBooking(t, "pass-1")
		_, err := f.bookings.AssignDriver(ctx, admin, b.ID, "pass-2")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("driver without vehicle", func(t *testing.T) {
		b := f.createBooking(t, "pass-1")
		_, err := f.bookings.AssignDriver(ctx, admin, b.ID, "drv-3")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("vehicle already booked", func(t *testing.T) {
		f.confirmedBooking(t, "drv-2")
		b := f.createBooking(t, "pass-2")
		_, err := f.bookings.AssignDriver(ctx, admin, b.ID, "drv-2")
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, domain.BookingStatusPending, f.stored(t, b.ID).Status)
	})

	t.Run("booking not pending", func(t *testing.T) {
		b := f.confirmedBooking(t, "drv-1")
		_, err := f.bookings.AssignDriver(ctx, admin, b.ID, "drv-1")
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestAssignDriver_DriverAssignsSelf(t *testing.T) {
	f := newFixture(t)

	b := f.createBooking(t, "pass-1")
	b, err := f.bookings.AssignDriver(context.Background(), driver1, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, "drv-1", b.DriverID)
	assert.Equal(t, driver1.ID, f.events.last().ActorID)
}

func TestAssignDriver_ConcurrentSameVehicle(t *testing.T) {
	for name, opts := range map[string][]fixtureOption{
		"storage only": nil,
		"with redis":   {withRedis()},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)

			const n = 12
			ids := make([]string, n)
			for i := range ids {
				ids[i] = f.createBooking(t, "pass-1").ID
			}

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
			)
			for _, id := range ids {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					_, err := f.bookings.AssignDriver(context.Background(), admin, id, "drv-1")
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, ErrConflict):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(id)
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, n-1, conflicts)
			assert.Equal(t, domain.VehicleStatusBooked, f.vehicleStatus(t, "veh-1"))

			confirmed := 0
			for _, id := range ids {
				if f.stored(t, id).Status == domain.BookingStatusConfirmed {
					confirmed++
				}
			}
			assert.Equal(t, 1, confirmed)
		})
	}
}

func TestAssignDriver_ConcurrentSameBooking(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "pass-1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, drv := range []string{"drv-1", "drv-2"} {
		wg.Add(1)
		go func(i int, drv string) {
			defer wg.Done()
			_, errs[i] = f.bookings.AssignDriver(context.Background(), admin, b.ID, drv)
		}(i, drv)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrInvalidState)
		}
	}
	require.Equal(t, 1, winners)

	stored := f.stored(t, b.ID)
	loserVehicle := "veh-2"
	if stored.DriverID == "drv-2" {
		loserVehicle = "veh-1"
	}
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, loserVehicle), "losing driver's vehicle must stay free")
}

func TestChangeStatus_CheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.createBooking(t, "pass-1")
	cancelled, err := f.bookings.Cancel(ctx, passenger, f.createBooking(t, "pass-1").ID, "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   domain.Actor
		booking string
		target  domain.BookingStatus
		want    error
	}{
		{"unknown status", admin, pending.ID, domain.BookingStatus("FLYING"), ErrValidation},
		{"unknown booking", admin, "missing", domain.BookingStatusCancelled, ErrNotFound},
		{"unrelated actor on terminal booking", passenger2, cancelled.ID, domain.BookingStatusPending, ErrForbidden},
		{"owner on terminal booking", passenger, cancelled.ID, domain.BookingStatusPending, ErrInvalidState},
		{"driver unrelated to booking", driver1, pending.ID, domain.BookingStatusRejected, ErrForbidden},
		{"owner asks for completion", passenger, pending.ID, domain.BookingStatusCompleted, ErrForbidden},
		{"owner asks for confirmation", passenger, pending.ID, domain.BookingStatusConfirmed, ErrForbidden},
		{"admin confirms directly", admin, pending.ID, domain.BookingStatusConfirmed, ErrInvalidState},
		{"admin confirms via alias", admin, pending.ID, domain.BookingStatusDriverAssigned, ErrInvalidState},
		{"admin skips to completed", admin, pending.ID, domain.BookingStatusCompleted, ErrInvalidState},
		{"admin skips to in progress", admin, pending.ID, domain.BookingStatusInProgress, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.ChangeStatus(ctx, tt.actor, tt.booking, tt.target)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, domain.BookingStatusPending, f.stored(t, pending.ID).Status)
}

func TestChangeStatus_AdminDrivesRide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.confirmedBooking(t, "drv-1")

	b, err := f.bookings.ChangeStatus(ctx, admin, b.ID, domain.BookingStatusInProgress)
	require.NoError(t, err)
	assert.NotNil(t, b.StartTime)
	assert.Equal(t, domain.VehicleStatusInRide, f.vehicleStatus(t, "veh-1"))

	b, err = f.bookings.ChangeStatus(ctx, admin, b.ID, domain.BookingStatusCompleted)
	require.NoError(t, err)
	assert.NotNil(t, b.EndTime)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, "veh-1"))
	assert.Equal(t, hooks.EventBookingCompleted, f.events.last().Type)
}

func TestRejectAndRequeue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.confirmedBooking(t, "drv-1")
	b, err := f.bookings.StartRide(ctx, b.ID, "drv-1")
	require.NoError(t, err)

	// An unassigned driver cannot reject.
	_, err = f.bookings.ChangeStatus(ctx, driver2, b.ID, domain.BookingStatusRejected)
	assert.ErrorIs(t, err, ErrForbidden)

	b, err = f.bookings.ChangeStatus(ctx, driver1, b.ID, domain.BookingStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusRejected, b.Status)
	assert.Empty(t, b.DriverID)
	assert.Empty(t, b.VehicleID)
	assert.NotNil(t, b.StartTime, "the ride did start")
	assert.Nil(t, b.EndTime)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, "veh-1"))

	rejected := f.events.last()
	assert.Equal(t, hooks.EventBookingRejected, rejected.Type)
	assert.Equal(t, "drv-1", rejected.DriverID)

	// The rejecting driver no longer has standing on the booking.
	_, err = f.bookings.ChangeStatus(ctx, driver1, b.ID, domain.BookingStatusPending)
	assert.ErrorIs(t, err, ErrForbidden)

	b, err = f.bookings.ChangeStatus(ctx, admin, b.ID, domain.BookingStatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.Nil(t, b.StartTime)

	b, err = f.bookings.AssignDriver(ctx, admin, b.ID, "drv-2")
	require.NoError(t, err)
	assert.Equal(t, "veh-2", b.VehicleID)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("owner cancels confirmed booking", func(t *testing.T) {
		b := f.confirmedBooking(t, "drv-1")

		b, err := f.bookings.Cancel(ctx, passenger, b.ID, "plans changed")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, b.Status)
		assert.Empty(t, b.DriverID)
		assert.Empty(t, b.VehicleID)
		assert.NotNil(t, b.EndTime)
		assert.Contains(t, b.Notes, "plans changed")
		assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, "veh-1"))

		e := f.events.last()
		assert.Equal(t, hooks.EventBookingCancelled, e.Type)
		assert.Equal(t, "drv-1", e.DriverID)
		assert.Equal(t, "plans changed", e.Reason)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		b := f.createBooking(t, "pass-1")
		_, err := f.bookings.Cancel(ctx, passenger2, b.ID, "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("assigned driver must reject instead", func(t *testing.T) {
		b := f.confirmedBooking(t, "drv-1")
		_, err := f.bookings.Cancel(ctx, driver1, b.ID, "")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.bookings.Cancel(ctx, admin, b.ID, "")
		require.NoError(t, err)
	})

	t.Run("in progress cannot be cancelled", func(t *testing.T) {
		b := f.confirmedBooking(t, "drv-1")
		_, err := f.bookings.StartRide(ctx, b.ID, "drv-1")
		require.NoError(t, err)

		_, err = f.bookings.Cancel(ctx, passenger, b.ID, "")
		assert.ErrorIs(t, err, ErrInvalidState)
		_, err = f.bookings.Cancel(ctx, admin, b.ID, "")
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, domain.VehicleStatusInRide, f.vehicleStatus(t, "veh-1"))
	})
}

func TestTerminalBookingsRefuseEveryOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	completed := f.confirmedBooking(t, "drv-1")
	_, err := f.bookings.StartRide(ctx, completed.ID, "drv-1")
	require.NoError(t, err)
	_, err = f.bookings.CompleteRide(ctx, completed.ID, "drv-1")
	require.NoError(t, err)

	cancelled := f.confirmedBooking(t, "drv-1")
	_, err = f.bookings.Cancel(ctx, passenger, cancelled.ID, "")
	require.NoError(t, err)

	for _, id := range []string{completed.ID, cancelled.ID} {
		before := f.stored(t, id)

		_, err := f.bookings.AssignDriver(ctx, admin, id, "drv-2")
		assert.ErrorIs(t, err, ErrInvalidState)
		_, err = f.bookings.StartRide(ctx, id, "drv-1")
		assert.ErrorIs(t, err, ErrInvalidState)
		_, err = f.bookings.CompleteRide(ctx, id, "drv-1")
		assert.ErrorIs(t, err, ErrInvalidState)
		_, err = f.bookings.Cancel(ctx, admin, id, "")
		assert.ErrorIs(t, err, ErrInvalidState)
		_, err = f.bookings.ChangeStatus(ctx, admin, id, domain.BookingStatusPending)
		assert.ErrorIs(t, err, ErrInvalidState)

		after := f.stored(t, id)
		assert.Equal(t, before.Status, after.Status)
		assert.Equal(t, before.Version, after.Version)
	}
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, "veh-1"))
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, "veh-2"))
}

func TestStartAndComplete_WrongDriverOrState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.createBooking(t, "pass-1")
	_, err := f.bookings.StartRide(ctx, pending.ID, "drv-1")
	assert.ErrorIs(t, err, ErrInvalidState)

	b := f.confirmedBooking(t, "drv-1")
	_, err = f.bookings.StartRide(ctx, b.ID, "drv-2")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.bookings.CompleteRide(ctx, b.ID, "drv-1")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.bookings.StartRide(ctx, b.ID, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.bookings.StartRide(ctx, "missing", "drv-1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, domain.VehicleStatusBooked, f.vehicleStatus(t, "veh-1"))
}

func TestNoPartialMutationOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.createBooking(t, "pass-1")
	f.mem.InjectUpdateErrors(errors.New("disk on fire"))

	_, err := f.bookings.AssignDriver(ctx, admin, b.ID, "drv-1")
	assert.ErrorIs(t, err, ErrUnavailable)

	stored := f.stored(t, b.ID)
	assert.Equal(t, domain.BookingStatusPending, stored.Status)
	assert.Empty(t, stored.DriverID)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, "veh-1"), "reservation must roll back")
	assert.Empty(t, f.events.types(), "no hook fires for an uncommitted change")
}

func TestVersionConflictIsRetried(t *testing.T) {
	f := newFixture(t, withMaxRetries(2))
	ctx := context.Background()

	b := f.createBooking(t, "pass-1")
	f.mem.InjectUpdateErrors(repository.ErrVersionConflict, repository.ErrVersionConflict)

	b, err := f.bookings.AssignDriver(ctx, admin, b.ID, "drv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.Equal(t, int64(2), b.Version)
}

func TestVersionConflictExhaustsRetries(t *testing.T) {
	f := newFixture(t, withMaxRetries(2))
	ctx := context.Background()

	b := f.createBooking(t, "pass-1")
	f.mem.InjectUpdateErrors(repository.ErrVersionConflict, repository.ErrVersionConflict, repository.ErrVersionConflict)

	_, err := f.bookings.AssignDriver(ctx, admin, b.ID, "drv-1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, domain.VehicleStatusAvailable, f.vehicleStatus(t, "veh-1"))
	assert.Equal(t, domain.BookingStatusPending, f.stored(t, b.ID).Status)
}

func TestExpiredContextIsUnavailable(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "pass-1")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := f.bookings.Cancel(ctx, passenger, b.ID, "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, domain.BookingStatusPending, f.stored(t, b.ID).Status)
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.createBooking(t, "pass-1")

	_, err := f.bookings.RecordPayment(ctx, b.ID, true, "")
	assert.ErrorIs(t, err, ErrValidation)

	b, err = f.bookings.RecordPayment(ctx, b.ID, false, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, b.PaymentStatus)

	b, err = f.bookings.RecordPayment(ctx, b.ID, true, "txn-123")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, b.PaymentStatus)
	assert.Equal(t, "txn-123", b.PaymentReference)
	assert.Equal(t, domain.BookingStatusPending, b.Status)

	_, err = f.bookings.RecordPayment(ctx, "missing", true, "txn")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_UsesCacheAndChecksAccess(t *testing.T) {
	f := newFixture(t, withRedis())
	ctx := context.Background()

	b := f.createBooking(t, "pass-1")

	got, err := f.bookings.Get(ctx, passenger, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.True(t, f.redis.Exists("cache:booking:"+b.ID))

	_, err = f.bookings.Get(ctx, passenger2, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.bookings.AssignDriver(ctx, admin, b.ID, "drv-1")
	require.NoError(t, err)
	assert.False(t, f.redis.Exists("cache:booking:"+b.ID), "writes invalidate the cache")

	got, err = f.bookings.Get(ctx, driver1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, got.Status)

	_, err = f.bookings.Get(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_ScopesToActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createBooking(t, "pass-1")
	f.createBooking(t, "pass-2")
	f.confirmedBooking(t, "drv-1")

	mine, err := f.bookings.List(ctx, passenger, ListBookingsRequest{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, b := range mine {
		assert.Equal(t, "pass-1", b.PassengerID)
	}

	_, err = f.bookings.List(ctx, passenger, ListBookingsRequest{PassengerID: "pass-2"})
	assert.ErrorIs(t, err, ErrForbidden)

	assigned, err := f.bookings.List(ctx, driver1, ListBookingsRequest{})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	_, err = f.bookings.List(ctx, driver1, ListBookingsRequest{DriverID: "drv-2"})
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := f.bookings.List(ctx, admin, ListBookingsRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := f.bookings.List(ctx, admin, ListBookingsRequest{Status: domain.BookingStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	confirmed, err := f.bookings.List(ctx, admin, ListBookingsRequest{Status: domain.BookingStatusDriverAssigned})
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)

	_, err = f.bookings.List(ctx, admin, ListBookingsRequest{Status: "BOGUS"})
	assert.ErrorIs(t, err, ErrValidation)
}
