package record

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/adminkit/adminkit/app/observability/metrics"
)

// BulkError records one failed item of a bulk operation.
type BulkError struct {
	Index int       // position in the caller's input
	ID    uuid.UUID // zero for create items that never got an id
	Err   error
}

// BulkResult reports partial outcomes of a bulk operation. Successes and
// failures coexist; nothing is masked.
type BulkResult struct {
	Succeeded []uuid.UUID
	Errors    []BulkError
}

// pendingStmt is one validated statement queued for a bulk batch.
type pendingStmt struct {
	index       int
	id          uuid.UUID
	sql         string
	args        []any
	returningID bool
}

// BulkCreate validates and persists many rows. Items are chunked into
// fixed-size batches, one transaction per batch executed sequentially; a
// failing statement rolls back its batch and every item of that batch is
// reported in Errors. Invalid items never reach the database.
func (s *Service[T]) BulkCreate(ctx context.Context, items []Fields) (*BulkResult, error) {
	ctx, span := s.span(ctx, "BulkCreate")
	defer span.End()

	res := &BulkResult{}
	var queue []pendingStmt
	for i, data := range items {
		if err := s.validateWrite(data, "create", true); err != nil {
			res.Errors = append(res.Errors, BulkError{Index: i, Err: err})
			continue
		}
		keys := data.sortedKeys()
		placeholders := make([]string, len(keys))
		args := make([]any, len(keys))
		for j, k := range keys {
			placeholders[j] = fmt.Sprintf("$%d", j+1)
			args[j] = data[k]
		}
		sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
			s.desc.Table, strings.Join(keys, ", "), strings.Join(placeholders, ", "))
		queue = append(queue, pendingStmt{index: i, sql: sql, args: args, returningID: true})
	}
	s.runBatches(ctx, "bulk_create", queue, res)
	s.logBulk(ctx, "bulk_create", res)
	if len(res.Errors) > 0 {
		span.SetStatus(codes.Error, "partial failure")
	}
	return res, nil
}

// BulkUpdate applies the same field set to many rows (soft-deleted rows
// included). Ids that do not exist are reported per item without aborting
// anything else.
func (s *Service[T]) BulkUpdate(ctx context.Context, ids []uuid.UUID, data Fields) (*BulkResult, error) {
	ctx, span := s.span(ctx, "BulkUpdate")
	defer span.End()

	if err := s.validateWrite(data, "update", false); err != nil {
		span.SetStatus(codes.Error, "input rejected")
		return nil, err
	}
	existing, err := s.GetByIDs(ctx, ids, IncludeDeleted(), WithFields("id"))
	if err != nil {
		return nil, err
	}
	have := make(map[uuid.UUID]struct{}, len(existing))
	for _, it := range existing {
		have[(*it).RecordID()] = struct{}{}
	}

	keys := data.sortedKeys()
	set := make([]string, len(keys))
	for i, k := range keys {
		set[i] = fmt.Sprintf("%s = $%d", k, i+1)
	}
	sql := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE id = $%d",
		s.desc.Table, strings.Join(set, ", "), len(keys)+1)

	res := &BulkResult{}
	var queue []pendingStmt
	for i, id := range ids {
		if _, ok := have[id]; !ok {
			res.Errors = append(res.Errors, BulkError{Index: i, ID: id,
				Err: fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotFound)})
			continue
		}
		args := make([]any, 0, len(keys)+1)
		for _, k := range keys {
			args = append(args, data[k])
		}
		args = append(args, id)
		queue = append(queue, pendingStmt{index: i, id: id, sql: sql, args: args})
	}
	s.runBatches(ctx, "bulk_update", queue, res)
	s.logBulk(ctx, "bulk_update", res)
	return res, nil
}

// BulkSoftDelete stamps deleted_at on many active rows. Ids that are absent
// or already soft-deleted are reported per item.
func (s *Service[T]) BulkSoftDelete(ctx context.Context, ids []uuid.UUID) (*BulkResult, error) {
	ctx, span := s.span(ctx, "BulkSoftDelete")
	defer span.End()

	existing, err := s.GetByIDs(ctx, ids, WithFields("id"))
	if err != nil {
		return nil, err
	}
	have := make(map[uuid.UUID]struct{}, len(existing))
	for _, it := range existing {
		have[(*it).RecordID()] = struct{}{}
	}
	sql := fmt.Sprintf("UPDATE %s SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL", s.desc.Table)

	res := &BulkResult{}
	var queue []pendingStmt
	for i, id := range ids {
		if _, ok := have[id]; !ok {
			res.Errors = append(res.Errors, BulkError{Index: i, ID: id,
				Err: fmt.Errorf("%s %s: not found or already deleted: %w", s.desc.Name, id, ErrNotFound)})
			continue
		}
		queue = append(queue, pendingStmt{index: i, id: id, sql: sql, args: []any{id}})
	}
	s.runBatches(ctx, "bulk_soft_delete", queue, res)
	s.logBulk(ctx, "bulk_soft_delete", res)
	return res, nil
}

// BulkHardDelete permanently removes many rows, soft-deleted or not.
func (s *Service[T]) BulkHardDelete(ctx context.Context, ids []uuid.UUID) (*BulkResult, error) {
	ctx, span := s.span(ctx, "BulkHardDelete")
	defer span.End()

	existing, err := s.GetByIDs(ctx, ids, IncludeDeleted(), WithFields("id"))
	if err != nil {
		return nil, err
	}
	have := make(map[uuid.UUID]struct{}, len(existing))
	for _, it := range existing {
		have[(*it).RecordID()] = struct{}{}
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.desc.Table)

	res := &BulkResult{}
	var queue []pendingStmt
	for i, id := range ids {
		if _, ok := have[id]; !ok {
			res.Errors = append(res.Errors, BulkError{Index: i, ID: id,
				Err: fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotFound)})
			continue
		}
		queue = append(queue, pendingStmt{index: i, id: id, sql: sql, args: []any{id}})
	}
	s.runBatches(ctx, "bulk_hard_delete", queue, res)
	s.logBulk(ctx, "bulk_hard_delete", res)
	return res, nil
}

// BulkRestore clears deleted_at on many soft-deleted rows. Rows that are
// not currently soft-deleted are reported as errors rather than silently
// skipped.
func (s *Service[T]) BulkRestore(ctx context.Context, ids []uuid.UUID) (*BulkResult, error) {
	ctx, span := s.span(ctx, "BulkRestore")
	defer span.End()

	existing, err := s.GetByIDs(ctx, ids, IncludeDeleted(), WithFields("id", "deleted_at"))
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*T, len(existing))
	for _, it := range existing {
		byID[(*it).RecordID()] = it
	}
	sql := fmt.Sprintf("UPDATE %s SET deleted_at = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NOT NULL", s.desc.Table)

	res := &BulkResult{}
	var queue []pendingStmt
	for i, id := range ids {
		it, ok := byID[id]
		if !ok {
			res.Errors = append(res.Errors, BulkError{Index: i, ID: id,
				Err: fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotFound)})
			continue
		}
		if !(*it).IsDeleted() {
			res.Errors = append(res.Errors, BulkError{Index: i, ID: id,
				Err: fmt.Errorf("%s %s: %w", s.desc.Name, id, ErrNotDeleted)})
			continue
		}
		queue = append(queue, pendingStmt{index: i, id: id, sql: sql, args: []any{id}})
	}
	s.runBatches(ctx, "bulk_restore", queue, res)
	s.logBulk(ctx, "bulk_restore", res)
	return res, nil
}

// runBatches executes the queued statements in fixed-size batches, one
// transaction per batch, strictly sequentially. Batches fail independently.
func (s *Service[T]) runBatches(ctx context.Context, op string, queue []pendingStmt, res *BulkResult) {
	for start := 0; start < len(queue); start += s.batchSize {
		end := start + s.batchSize
		if end > len(queue) {
			end = len(queue)
		}
		s.runBatch(ctx, op, queue[start:end], res)
	}
}

func (s *Service[T]) runBatch(ctx context.Context, op string, batch []pendingStmt, res *BulkResult) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.failBatch(batch, -1, &StoreError{Entity: s.desc.Name, Op: op, Err: err}, res)
		return
	}
	ids := make([]uuid.UUID, 0, len(batch))
	for i, st := range batch {
		if st.returningID {
			var id uuid.UUID
			err = tx.QueryRow(ctx, st.sql, st.args...).Scan(&id)
			ids = append(ids, id)
		} else {
			_, err = tx.Exec(ctx, st.sql, st.args...)
			ids = append(ids, st.id)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			s.failBatch(batch, i, &StoreError{Entity: s.desc.Name, Op: op, Err: err}, res)
			return
		}
	}
	if err := tx.Commit(ctx); err != nil {
		s.failBatch(batch, -1, &StoreError{Entity: s.desc.Name, Op: op, Err: err}, res)
		return
	}
	res.Succeeded = append(res.Succeeded, ids...)
}

// failBatch records the failing statement (failedAt, or the batch as a
// whole when negative) and marks every other item of the rolled-back batch
// with ErrBatchAborted.
func (s *Service[T]) failBatch(batch []pendingStmt, failedAt int, cause error, res *BulkResult) {
	for i, st := range batch {
		err := cause
		if failedAt >= 0 && i != failedAt {
			err = fmt.Errorf("%w: %v", ErrBatchAborted, cause)
		}
		res.Errors = append(res.Errors, BulkError{Index: st.index, ID: st.id, Err: err})
	}
}

func (s *Service[T]) logBulk(ctx context.Context, op string, res *BulkResult) {
	metrics.RecordBulkItems(ctx, s.desc.Name+"."+op, len(res.Succeeded), len(res.Errors))
	s.logger.InfoContext(ctx, "bulk operation finished",
		slog.String("op", op),
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Errors)),
	)
}
