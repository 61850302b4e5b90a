// package repositories provides persistence layer implementations for local model types.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations and soft deletes.
package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/ytpod/internal/shared"
)

// scanner is satisfied by [*sql.Row] and [*sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// expectOne returns an error wrapping [shared.ErrNotFound] unless exactly one row was affected.
func expectOne(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted: %s", shared.ErrNotFound, entity, id)
	}
	return nil
}
