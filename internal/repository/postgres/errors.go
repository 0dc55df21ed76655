package postgres

import (
	"errors"

	"github.com/lib/pq"

	"cabdispatch/internal/repository"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// mapWriteError translates driver errors on INSERT into repository errors.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}
