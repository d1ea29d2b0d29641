package record

import (
	"sort"

	"github.com/google/uuid"
)

// Record is implemented by every persisted entity (see models.Base).
type Record interface {
	RecordID() uuid.UUID
	IsDeleted() bool
}

// Fields carries column/value pairs supplied by a caller for writes or
// equality filters. Keys are column names.
type Fields map[string]any

func (f Fields) sortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Descriptor wires one entity type into the generic service: its table, the
// full column set and the write/search whitelists. Columns is the schema
// (unknown fields are rejected as validation errors); Writable and
// Searchable are the per-entity whitelists (fields outside them are
// rejected as permission errors before any statement runs).
type Descriptor[T Record] struct {
	Name       string // entity name used in errors and logs
	Table      string
	Columns    []string // every selectable column, audit columns included
	Writable   []string
	Searchable []string
	Required   []string // create-time mandatory columns

	// Bind maps column names to scan destinations on a value of T.
	Bind func(*T) map[string]any
}

type readOptions struct {
	includeDeleted bool
	fields         []string
}

// ReadOption adjusts a single read operation.
type ReadOption func(*readOptions)

// IncludeDeleted makes a read operation return soft-deleted rows too.
func IncludeDeleted() ReadOption {
	return func(o *readOptions) { o.includeDeleted = true }
}

// WithFields narrows the selected columns to the given response projection.
// Columns not listed stay zero-valued on the returned struct.
func WithFields(fields ...string) ReadOption {
	return func(o *readOptions) { o.fields = fields }
}

func buildReadOptions(opts []ReadOption) readOptions {
	var ro readOptions
	for _, opt := range opts {
		opt(&ro)
	}
	return ro
}
