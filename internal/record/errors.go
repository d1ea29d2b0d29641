package record

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("record not found")
var ErrAlreadyDeleted = errors.New("record already deleted")
var ErrNotDeleted = errors.New("record not deleted")
var ErrMultipleResults = errors.New("multiple records matched")

// ErrBatchAborted marks items of a bulk batch that were rolled back because
// another statement in the same batch failed.
var ErrBatchAborted = errors.New("batch rolled back")

// ValidationError reports input the entity schema rejects: an unknown
// column, a missing required field, or an empty payload.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q %s", e.Entity, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

// FieldNotAllowedError reports a field that exists on the entity but sits
// outside the declared whitelist for the attempted operation.
type FieldNotAllowedError struct {
	Entity string
	Field  string
	Op     string
}

func (e *FieldNotAllowedError) Error() string {
	return fmt.Sprintf("%s: field %q not allowed for %s", e.Entity, e.Field, e.Op)
}

// StoreError wraps a failure from the underlying store (constraint
// violations included). The active statement has already been rolled back
// by the time it surfaces.
type StoreError struct {
	Entity string
	Op     string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsDuplicate reports whether err stems from a unique constraint violation.
func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err stems from a foreign key
// constraint violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
