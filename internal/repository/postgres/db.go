package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cabdispatch/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier          = (*sql.DB)(nil)
	_ Querier          = (*sql.Tx)(nil)
	_ repository.Store = (*Store)(nil)
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
	q  Querier
}

// NewStore creates a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Bookings returns the booking repository bound to this store's querier.
func (s *Store) Bookings() repository.BookingRepository { return &BookingRepository{q: s.q} }

// Vehicles returns the vehicle repository bound to this store's querier.
func (s *Store) Vehicles() repository.VehicleRepository { return &VehicleRepository{q: s.q} }

// Users returns the user repository bound to this store's querier.
func (s *Store) Users() repository.UserRepository { return &UserRepository{q: s.q} }

// WithinTx runs fn inside a READ COMMITTED transaction. Row locks taken by
// conditional UPDATEs are held until commit, so competing writers serialise.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// checkAffected maps a zero-row write to ErrNotFound.
func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// exists reports whether a row with id exists in table.
func exists(ctx context.Context, q Querier, table, id string) (bool, error) {
	var found bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&found)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return found, nil
}
