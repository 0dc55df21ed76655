package repository

import (
	"context"

	"cabdispatch/internal/domain"
)

// BookingFilter narrows a booking listing. Empty fields match everything.
type BookingFilter struct {
	PassengerID string
	DriverID    string
	Status      domain.BookingStatus
	Limit       int
}

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking with version 1.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// Update writes booking if its stored version still equals booking.Version.
	// On success booking.Version is incremented. A stale version yields ErrVersionConflict.
	Update(ctx context.Context, booking *domain.Booking) error

	// List retrieves bookings matching filter, newest first.
	List(ctx context.Context, filter BookingFilter) ([]*domain.Booking, error)
}
