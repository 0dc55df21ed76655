package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables and indexes the repositories rely on.
// Every statement is idempotent.
func Migrate(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
