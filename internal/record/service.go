package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// DB is the subset of pgxpool.Pool the service needs. Both *pgxpool.Pool
// and pgxmock pools satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DefaultBatchSize bounds how many statements a bulk operation puts in one
// transaction.
const DefaultBatchSize = 1000

// Service is the generic record engine: uniform persistence operations for
// one entity type, parametrized by its Descriptor. Every mutating call is a
// single statement or a single per-batch transaction; there are no
// cross-call transactions.
type Service[T Record] struct {
	db        DB
	desc      Descriptor[T]
	logger    *slog.Logger
	batchSize int

	columns    map[string]struct{}
	writable   map[string]struct{}
	searchable map[string]struct{}
}

// Option adjusts a Service at construction time.
type Option[T Record] func(*Service[T])

// WithBatchSize overrides the bulk batch size.
func WithBatchSize[T Record](n int) Option[T] {
	return func(s *Service[T]) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func New[T Record](db DB, desc Descriptor[T], logger *slog.Logger, opts ...Option[T]) *Service[T] {
	s := &Service[T]{
		db:         db,
		desc:       desc,
		logger:     logger.With(slog.String("entity", desc.Name)),
		batchSize:  DefaultBatchSize,
		columns:    toSet(desc.Columns),
		writable:   toSet(desc.Writable),
		searchable: toSet(desc.Searchable),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// --- query assembly -------------------------------------------------------

func (s *Service[T]) selectColumns(ro readOptions) ([]string, error) {
	if len(ro.fields) == 0 {
		return s.desc.Columns, nil
	}
	cols := make([]string, 0, len(ro.fields))
	for _, f := range ro.fields {
		if _, ok := s.columns[f]; !ok {
			return nil, &ValidationError{Entity: s.desc.Name, Field: f, Reason: "is not a known column"}
		}
		cols = append(cols, f)
	}
	return cols, nil
}

func (s *Service[T]) scanDest(t *T, cols []string) []any {
	bound := s.desc.Bind(t)
	dest := make([]any, len(cols))
	for i, c := range cols {
		dest[i] = bound[c]
	}
	return dest
}

// whereClause builds "deleted_at IS NULL AND a = $1 AND b = $2" style
// conditions from an equality filter. Filter keys are sorted so the
// generated SQL is deterministic. Unknown columns fail validation.
func (s *Service[T]) whereClause(filter Fields, includeDeleted bool) (string, []any, error) {
	var conds []string
	if !includeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	var args []any
	for _, k := range filter.sortedKeys() {
		if _, ok := s.columns[k]; !ok {
			return "", nil, &ValidationError{Entity: s.desc.Name, Field: k, Reason: "is not a known column"}
		}
		args = append(args, filter[k])
		conds = append(conds, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// validateWrite enforces the schema and the writable whitelist before any
// statement runs.
func (s *Service[T]) validateWrite(data Fields, op string, create bool) error {
	if len(data) == 0 {
		return &ValidationError{Entity: s.desc.Name, Reason: "no fields supplied"}
	}
	for _, k := range data.sortedKeys() {
		if _, ok := s.columns[k]; !ok {
			return &ValidationError{Entity: s.desc.Name, Field: k, Reason: "is not a known column"}
		}
		if _, ok := s.writable[k]; !ok {
			return &FieldNotAllowedError{Entity: s.desc.Name, Field: k, Op: op}
		}
	}
	if create {
		for _, r := range s.desc.Required {
			if _, ok := data[r]; !ok {
				return &ValidationError{Entity: s.desc.Name, Field: r, Reason: "is required"}
			}
		}
	}
	return nil
}

func (s *Service[T]) queryMany(ctx context.Context, op, sql string, cols []string, args ...any) ([]*T, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, &StoreError{Entity: s.desc.Name, Op: op, Err: err}
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		var t T
		if err := rows.Scan(s.scanDest(&t, cols)...); err != nil {
			return nil, &StoreError{Entity: s.desc.Name, Op: op, Err: err}
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Entity: s.desc.Name, Op: op, Err: err}
	}
	return out, nil
}

func (s *Service[T]) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	sql := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", s.desc.Table)
	if err := s.db.QueryRow(ctx, sql, id).Scan(&exists); err != nil {
		return false, &StoreError{Entity: s.desc.Name, Op: "exists", Err: err}
	}
	return exists, nil
}

// --- reads ----------------------------------------------------------------

// GetByID returns one record by primary key. Soft-deleted rows are hidden
// unless IncludeDeleted is given.
func (s *Service[T]) GetByID(ctx context.Context, id uuid.UUID, opts ...ReadOption) (*T, error) {
	ro := buildReadOptions(opts)
	cols, err := s.selectColumns(ro)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(cols, ", "), s.desc.Table)
	if !ro.includeDeleted {
		sql += " AND deleted_at IS NULL"
	}
	var t T
	if err := s.db.QueryRow(ctx, sql, id).Scan(s.scanDest(&t, cols)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotFound)
		}
		return nil, &StoreError{Entity: s.desc.Name, Op: "get_by_id", Err: err}
	}
	return &t, nil
}

// GetByIDs returns the records matching the given ids. Missing ids are
// simply absent from the result.
func (s *Service[T]) GetByIDs(ctx context.Context, ids []uuid.UUID, opts ...ReadOption) ([]*T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ro := buildReadOptions(opts)
	cols, err := s.selectColumns(ro)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1)", strings.Join(cols, ", "), s.desc.Table)
	if !ro.includeDeleted {
		sql += " AND deleted_at IS NULL"
	}
	return s.queryMany(ctx, "get_by_ids", sql, cols, ids)
}

// GetAll returns every record of the entity.
func (s *Service[T]) GetAll(ctx context.Context, opts ...ReadOption) ([]*T, error) {
	ro := buildReadOptions(opts)
	cols, err := s.selectColumns(ro)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.desc.Table)
	if !ro.includeDeleted {
		sql += " WHERE deleted_at IS NULL"
	}
	return s.queryMany(ctx, "get_all", sql, cols)
}

// FindBy returns the records matching an equality filter.
func (s *Service[T]) FindBy(ctx context.Context, filter Fields, opts ...ReadOption) ([]*T, error) {
	ro := buildReadOptions(opts)
	cols, err := s.selectColumns(ro)
	if err != nil {
		return nil, err
	}
	where, args, err := s.whereClause(filter, ro.includeDeleted)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.desc.Table) + where
	return s.queryMany(ctx, "find_by", sql, cols, args...)
}

// FindOne returns the single record matching the filter. It fails with
// ErrNotFound when nothing matches and ErrMultipleResults when the
// uniqueness assumption is violated.
func (s *Service[T]) FindOne(ctx context.Context, filter Fields, opts ...ReadOption) (*T, error) {
	ro := buildReadOptions(opts)
	cols, err := s.selectColumns(ro)
	if err != nil {
		return nil, err
	}
	where, args, err := s.whereClause(filter, ro.includeDeleted)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.desc.Table) + where + " LIMIT 2"
	items, err := s.queryMany(ctx, "find_one", sql, cols, args...)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, fmt.Errorf("%s: %w", s.desc.Name, ErrNotFound)
	case 1:
		return items[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", s.desc.Name, ErrMultipleResults)
	}
}

// Search performs a case-insensitive substring match OR-combined over the
// given fields. Fields outside the searchable whitelist are rejected.
func (s *Service[T]) Search(ctx context.Context, term string, fields []string, opts ...ReadOption) ([]*T, error) {
	if len(fields) == 0 {
		return nil, &ValidationError{Entity: s.desc.Name, Reason: "no search fields supplied"}
	}
	for _, f := range fields {
		if _, ok := s.searchable[f]; !ok {
			return nil, &FieldNotAllowedError{Entity: s.desc.Name, Field: f, Op: "search"}
		}
	}
	ro := buildReadOptions(opts)
	cols, err := s.selectColumns(ro)
	if err != nil {
		return nil, err
	}
	var conds []string
	if !ro.includeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	like := make([]string, len(fields))
	for i, f := range fields {
		like[i] = fmt.Sprintf("%s ILIKE $1", f)
	}
	conds = append(conds, "("+strings.Join(like, " OR ")+")")
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(cols, ", "), s.desc.Table, strings.Join(conds, " AND "))
	return s.queryMany(ctx, "search", sql, cols, "%"+term+"%")
}

// Count returns the number of records matching an equality filter.
func (s *Service[T]) Count(ctx context.Context, filter Fields, opts ...ReadOption) (int64, error) {
	ro := buildReadOptions(opts)
	where, args, err := s.whereClause(filter, ro.includeDeleted)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("SELECT count(*) FROM %s", s.desc.Table) + where
	var n int64
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, &StoreError{Entity: s.desc.Name, Op: "count", Err: err}
	}
	return n, nil
}

// FindSince returns the records whose timestamp column is at or after the
// given instant.
func (s *Service[T]) FindSince(ctx context.Context, column string, since time.Time, opts ...ReadOption) ([]*T, error) {
	if _, ok := s.columns[column]; !ok {
		return nil, &ValidationError{Entity: s.desc.Name, Field: column, Reason: "is not a known column"}
	}
	ro := buildReadOptions(opts)
	cols, err := s.selectColumns(ro)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s >= $1", strings.Join(cols, ", "), s.desc.Table, column)
	if !ro.includeDeleted {
		sql += " AND deleted_at IS NULL"
	}
	return s.queryMany(ctx, "find_since", sql, cols, since)
}

// CountSince counts the records whose timestamp column is at or after the
// given instant.
func (s *Service[T]) CountSince(ctx context.Context, column string, since time.Time, opts ...ReadOption) (int64, error) {
	if _, ok := s.columns[column]; !ok {
		return 0, &ValidationError{Entity: s.desc.Name, Field: column, Reason: "is not a known column"}
	}
	ro := buildReadOptions(opts)
	sql := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s >= $1", s.desc.Table, column)
	if !ro.includeDeleted {
		sql += " AND deleted_at IS NULL"
	}
	var n int64
	if err := s.db.QueryRow(ctx, sql, since).Scan(&n); err != nil {
		return 0, &StoreError{Entity: s.desc.Name, Op: "count_since", Err: err}
	}
	return n, nil
}

// --- writes ---------------------------------------------------------------

func (s *Service[T]) span(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer("record").Start(ctx, op, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", s.desc.Table),
	))
}

// Create validates data against the entity schema and whitelist, persists a
// new row and returns the stored record. Server-generated columns (id and
// audit timestamps) come back from the database.
func (s *Service[T]) Create(ctx context.Context, data Fields) (*T, error) {
	ctx, span := s.span(ctx, "Create")
	defer span.End()

	if err := s.validateWrite(data, "create", true); err != nil {
		span.SetStatus(codes.Error, "input rejected")
		return nil, err
	}
	keys := data.sortedKeys()
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = data[k]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.desc.Table,
		strings.Join(keys, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(s.desc.Columns, ", "))

	var t T
	if err := s.db.QueryRow(ctx, sql, args...).Scan(s.scanDest(&t, s.desc.Columns)...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "INSERT failed")
		return nil, &StoreError{Entity: s.desc.Name, Op: "create", Err: err}
	}
	s.logger.InfoContext(ctx, "record created", slog.String("id", t.RecordID().String()))
	return &t, nil
}

// Update loads the row (soft-deleted rows included, so a restore-then-update
// flow works), validates data and persists the recognized fields.
func (s *Service[T]) Update(ctx context.Context, id uuid.UUID, data Fields) (*T, error) {
	ctx, span := s.span(ctx, "Update")
	defer span.End()

	if err := s.validateWrite(data, "update", false); err != nil {
		span.SetStatus(codes.Error, "input rejected")
		return nil, err
	}
	if _, err := s.GetByID(ctx, id, IncludeDeleted(), WithFields("id")); err != nil {
		span.SetStatus(codes.Error, "row not found")
		return nil, err
	}

	keys := data.sortedKeys()
	set := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		set[i] = fmt.Sprintf("%s = $%d", k, i+1)
		args = append(args, data[k])
	}
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE id = $%d RETURNING %s",
		s.desc.Table, strings.Join(set, ", "), len(args), strings.Join(s.desc.Columns, ", "))

	var t T
	if err := s.db.QueryRow(ctx, sql, args...).Scan(s.scanDest(&t, s.desc.Columns)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row vanished between the load and the write.
			return nil, fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "UPDATE failed")
		return nil, &StoreError{Entity: s.desc.Name, Op: "update", Err: err}
	}
	s.logger.InfoContext(ctx, "record updated", slog.String("id", id.String()))
	return &t, nil
}

// SoftDelete stamps deleted_at on an active row. Deleting an absent row
// fails with ErrNotFound, a soft-deleted one with ErrAlreadyDeleted.
func (s *Service[T]) SoftDelete(ctx context.Context, id uuid.UUID) (*T, error) {
	ctx, span := s.span(ctx, "SoftDelete")
	defer span.End()

	sql := fmt.Sprintf("UPDATE %s SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		s.desc.Table, strings.Join(s.desc.Columns, ", "))
	var t T
	err := s.db.QueryRow(ctx, sql, id).Scan(s.scanDest(&t, s.desc.Columns)...)
	if err == nil {
		s.logger.InfoContext(ctx, "record soft-deleted", slog.String("id", id.String()))
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "UPDATE failed")
		return nil, &StoreError{Entity: s.desc.Name, Op: "soft_delete", Err: err}
	}
	exists, probeErr := s.exists(ctx, id)
	if probeErr != nil {
		return nil, probeErr
	}
	if exists {
		return nil, fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrAlreadyDeleted)
	}
	return nil, fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotFound)
}

// Restore clears deleted_at on a soft-deleted row. Restoring an active row
// fails with ErrNotDeleted.
func (s *Service[T]) Restore(ctx context.Context, id uuid.UUID) (*T, error) {
	ctx, span := s.span(ctx, "Restore")
	defer span.End()

	sql := fmt.Sprintf("UPDATE %s SET deleted_at = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NOT NULL RETURNING %s",
		s.desc.Table, strings.Join(s.desc.Columns, ", "))
	var t T
	err := s.db.QueryRow(ctx, sql, id).Scan(s.scanDest(&t, s.desc.Columns)...)
	if err == nil {
		s.logger.InfoContext(ctx, "record restored", slog.String("id", id.String()))
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "UPDATE failed")
		return nil, &StoreError{Entity: s.desc.Name, Op: "restore", Err: err}
	}
	exists, probeErr := s.exists(ctx, id)
	if probeErr != nil {
		return nil, probeErr
	}
	if exists {
		return nil, fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotDeleted)
	}
	return nil, fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotFound)
}

// HardDelete permanently removes the row, soft-deleted or not.
func (s *Service[T]) HardDelete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.span(ctx, "HardDelete")
	defer span.End()

	tag, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.desc.Table), id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DELETE failed")
		return &StoreError{Entity: s.desc.Name, Op: "hard_delete", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotFound)
	}
	s.logger.InfoContext(ctx, "record hard-deleted", slog.String("id", id.String()))
	return nil
}
