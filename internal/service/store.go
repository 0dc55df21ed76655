package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/logging"
	"cabdispatch/internal/metrics"
	"cabdispatch/internal/repository"
)

// StoreConfig tunes the booking store adapter.
type StoreConfig struct {
	MaxRetries       int
	OperationTimeout time.Duration
}

// BookingStore runs booking operations as single transactions. A version
// conflict re-runs the whole load-apply-save; storage failures surface as
// ErrUnavailable.
type BookingStore struct {
	store      repository.Store
	maxRetries int
	timeout    time.Duration
	log        zerolog.Logger
}

// NewBookingStore creates a BookingStore over store.
func NewBookingStore(store repository.Store, cfg StoreConfig) *BookingStore {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}
	return &BookingStore{
		store:      store,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.OperationTimeout,
		log:        logging.WithComponent("booking-store"),
	}
}

// Load reads one booking.
func (s *BookingStore) Load(ctx context.Context, bookingID string) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, classify(ctx, err, "booking "+bookingID)
	}
	return b, nil
}

// MutateFunc changes b in place. It may read and write other entities
// through tx; returning an error discards everything it wrote.
type MutateFunc func(ctx context.Context, tx repository.Store, b *domain.Booking) error

// Apply loads the booking, applies mutate and saves the result, all in one
// transaction. It returns the booking as committed.
func (s *BookingStore) Apply(ctx context.Context, bookingID string, mutate MutateFunc) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var committed *domain.Booking
	for attempt := 0; ; attempt++ {
		err := s.store.WithinTx(ctx, func(tx repository.Store) error {
			b, err := tx.Bookings().GetByID(ctx, bookingID)
			if err != nil {
				return err
			}
			if err := mutate(ctx, tx, b); err != nil {
				return err
			}
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
			committed = b
			return nil
		})
		if err == nil {
			return committed, nil
		}

		if errors.Is(err, repository.ErrVersionConflict) && attempt < s.maxRetries && ctx.Err() == nil {
			metrics.RecordStoreRetry()
			s.log.Debug().Str("booking_id", bookingID).Int("attempt", attempt+1).Msg("version conflict, retrying")
			continue
		}
		return nil, classify(ctx, err, "booking "+bookingID)
	}
}

// Run executes fn in one transaction under the operation timeout.
func (s *BookingStore) Run(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(ctx, tx)
	})
	return classify(ctx, err, "")
}

// Read executes fn against the non-transactional store under the operation timeout.
func (s *BookingStore) Read(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return classify(ctx, fn(ctx, s.store), "")
}

// classify maps repository and driver errors onto the service sentinels.
// Errors that already carry a sentinel pass through untouched.
func classify(ctx context.Context, err error, subject string) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}

	what := subject
	if what == "" {
		what = "entity"
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: %s was modified concurrently", ErrConflict, what)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, repository.ErrStatusMismatch):
		return fmt.Errorf("%w: %s changed status", ErrConflict, what)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: operation timed out", ErrUnavailable)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: operation cancelled", ErrUnavailable)
	default:
		return fmt.Errorf("%w: storage: %v", ErrUnavailable, err)
	}
}
