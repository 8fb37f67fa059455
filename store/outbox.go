package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusFailed  = "FAILED"
)

// OutboxStore persists `message_outbox`, the persist-and-retry buffer for
// publishes the Bus Adapter could not complete (spec §4.3).
type OutboxStore struct{}

// Enqueue inserts a new PENDING outbox row. eventID is unique; a duplicate
// enqueue (e.g. a retried Outbox.enqueue call after a transient DB error) is
// a no-op, not an error.
func (OutboxStore) Enqueue(ctx context.Context, db Execer, row OutboxRow) error {
	q := db.Rebind(`INSERT INTO message_outbox
		(event_id, topic, event_type, codec, payload, status, retry_count, max_retries, next_retry_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON DUPLICATE KEY UPDATE event_id = event_id`)
	_, err := db.ExecContext(ctx, q,
		row.EventID, row.Topic, row.EventType, row.Codec, row.Payload,
		OutboxStatusPending, row.MaxRetries, row.NextRetryAt)
	if err != nil {
		return errors.Wrap(err, "store: enqueue outbox row")
	}
	return nil
}

// DueForRetry returns PENDING rows whose next_retry_at has elapsed, for the
// Sweeper to republish.
func (OutboxStore) DueForRetry(ctx context.Context, db Execer, now time.Time, limit int) ([]OutboxRow, error) {
	var rows []OutboxRow
	q := db.Rebind(`SELECT id, event_id, topic, event_type, codec, payload, status,
		retry_count, max_retries, next_retry_at, last_error, created_at, updated_at
		FROM message_outbox WHERE status = ? AND next_retry_at <= ? ORDER BY next_retry_at ASC LIMIT ?`)
	if err := db.SelectContext(ctx, &rows, q, OutboxStatusPending, now, limit); err != nil {
		return nil, errors.Wrap(err, "store: due outbox rows")
	}
	return rows, nil
}

// MarkSent deletes the row on a successful republish.
func (OutboxStore) MarkSent(ctx context.Context, db Execer, id int64) error {
	q := db.Rebind(`DELETE FROM message_outbox WHERE id = ?`)
	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "store: delete sent outbox row")
	}
	return nil
}

// MarkRetryFailed increments retry_count and reschedules next_retry_at with
// the fixed 30s backoff, or transitions the row to terminal FAILED once
// retryCount reaches maxRetries.
func (OutboxStore) MarkRetryFailed(ctx context.Context, db Execer, id int64, retryCount, maxRetries int, nextRetryAt time.Time, lastErr string) error {
	status := OutboxStatusPending
	if retryCount >= maxRetries {
		status = OutboxStatusFailed
	}
	q := db.Rebind(`UPDATE message_outbox
		SET retry_count = ?, next_retry_at = ?, last_error = ?, status = ?
		WHERE id = ?`)
	if _, err := db.ExecContext(ctx, q, retryCount, nextRetryAt, lastErr, status, id); err != nil {
		return errors.Wrap(err, "store: mark outbox retry failed")
	}
	return nil
}
