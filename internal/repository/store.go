package repository

import "context"

// Store groups the repositories that share one transaction boundary.
type Store interface {
	Bookings() BookingRepository
	Vehicles() VehicleRepository
	Users() UserRepository

	// WithinTx runs fn against a transaction-scoped Store. Everything fn writes
	// is committed when it returns nil and discarded otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
