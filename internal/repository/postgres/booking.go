package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

const bookingColumns = `id, passenger_id, driver_id, vehicle_id,
	pickup_address, pickup_lat, pickup_lon, dropoff_address, dropoff_lat, dropoff_lon,
	scheduled_time, status, distance, fare, payment_status, payment_reference, notes,
	created_at, updated_at, start_time, end_time, version`

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, 1)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.PassengerID,
		nullString(booking.DriverID),
		nullString(booking.VehicleID),
		booking.Pickup.Address,
		booking.Pickup.Lat,
		booking.Pickup.Lon,
		booking.Dropoff.Address,
		booking.Dropoff.Lat,
		booking.Dropoff.Lon,
		booking.ScheduledTime,
		booking.Status,
		booking.Distance,
		booking.Fare,
		booking.PaymentStatus,
		nullString(booking.PaymentReference),
		booking.Notes,
		booking.CreatedAt,
		booking.UpdatedAt,
		booking.StartTime,
		booking.EndTime,
	)
	if err != nil {
		return mapWriteError(err)
	}

	booking.Version = 1
	return nil
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return booking, nil
}

// Update writes the booking when the stored version matches booking.Version.
func (r *BookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	query := `
		UPDATE bookings
		SET driver_id = $1, vehicle_id = $2, status = $3, distance = $4, fare = $5,
			payment_status = $6, payment_reference = $7, notes = $8, updated_at = $9,
			start_time = $10, end_time = $11, scheduled_time = $12, version = version + 1
		WHERE id = $13 AND version = $14
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(booking.DriverID),
		nullString(booking.VehicleID),
		booking.Status,
		booking.Distance,
		booking.Fare,
		booking.PaymentStatus,
		nullString(booking.PaymentReference),
		booking.Notes,
		booking.UpdatedAt,
		booking.StartTime,
		booking.EndTime,
		booking.ScheduledTime,
		booking.ID,
		booking.Version,
	)
	if err != nil {
		// The partial unique index allows one active booking per driver.
		return mapWriteError(err)
	}

	if err := checkAffected(result); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// Zero rows: either the booking is gone or someone else wrote first.
		found, existsErr := exists(ctx, r.q, "bookings", booking.ID)
		if existsErr != nil {
			return existsErr
		}
		if found {
			return repository.ErrVersionConflict
		}
		return repository.ErrNotFound
	}

	booking.Version++
	return nil
}

// List retrieves bookings matching filter, newest first.
func (r *BookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]*domain.Booking, error) {
	var (
		where []string
		args  []any
	)

	if filter.PassengerID != "" {
		args = append(args, filter.PassengerID)
		where = append(where, fmt.Sprintf("passenger_id = $%d", len(args)))
	}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		where = append(where, fmt.Sprintf("driver_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status.Canonical())
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var driverID, vehicleID, paymentReference sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.PassengerID,
		&driverID,
		&vehicleID,
		&booking.Pickup.Address,
		&booking.Pickup.Lat,
		&booking.Pickup.Lon,
		&booking.Dropoff.Address,
		&booking.Dropoff.Lat,
		&booking.Dropoff.Lon,
		&booking.ScheduledTime,
		&booking.Status,
		&booking.Distance,
		&booking.Fare,
		&booking.PaymentStatus,
		&paymentReference,
		&booking.Notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Version,
	)
	if err != nil {
		return nil, err
	}

	booking.DriverID = driverID.String
	booking.VehicleID = vehicleID.String
	booking.PaymentReference = paymentReference.String

	return &booking, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
