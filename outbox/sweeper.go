package outbox

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"missionpipeline/bus"
	"missionpipeline/store"
)

// Sweeper is the single-process ticker that republishes due PENDING rows
// (spec §4.3). Multiple processes may run a Sweeper concurrently; duplicate
// republishes land on idempotent consumers, so no cross-process
// coordination is done: DueForRetry takes no row locks.
type Sweeper struct {
	db    *store.DB
	bus   bus.Bus
	store *Store

	// Interval is how often the sweeper scans for due rows. Spec fixes 30s.
	Interval time.Duration
	// BatchSize bounds rows fetched per sweep tick.
	BatchSize int
}

// NewSweeper constructs a Sweeper with spec-default interval and batch size.
func NewSweeper(db *store.DB, b bus.Bus, s *Store) *Sweeper {
	return &Sweeper{db: db, bus: b, store: s, Interval: FixedBackoff, BatchSize: 50}
}

// Run ticks until ctx is canceled, sweeping once per tick. Call in its own
// goroutine from the process entrypoint.
func (sw *Sweeper) Run(ctx context.Context) {
	interval := sw.Interval
	if interval <= 0 {
		interval = FixedBackoff
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweepOnce(ctx)
		}
	}
}

// sweepOnce selects due PENDING rows and republishes each synchronously,
// exactly mirroring spec §4.3's retry/backoff/terminal-state rules.
func (sw *Sweeper) sweepOnce(ctx context.Context) {
	batch := sw.BatchSize
	if batch <= 0 {
		batch = 50
	}

	inner := store.OutboxStore{}
	now := time.Now()
	rows, err := inner.DueForRetry(ctx, sw.db.DB, now, batch)
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err}).Error("outbox: sweep query failed")
		return
	}

	for _, row := range rows {
		sw.retryRow(ctx, inner, row)
	}
}

func (sw *Sweeper) retryRow(ctx context.Context, inner store.OutboxStore, row store.OutboxRow) {
	payload, err := codecFor(row.Codec).Decompress(row.Payload)
	if err != nil {
		sw.fail(ctx, inner, row, errors.Wrap(err, "decompress outbox payload"))
		return
	}

	if err := sw.bus.PublishSync(ctx, row.Topic, payload); err != nil {
		sw.fail(ctx, inner, row, err)
		return
	}

	if err := inner.MarkSent(ctx, sw.db.DB, row.ID); err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "event_id": row.EventID}).Error(
			"outbox: mark sent failed after successful republish")
	}
}

func (sw *Sweeper) fail(ctx context.Context, inner store.OutboxStore, row store.OutboxRow, cause error) {
	retryCount := row.RetryCount + 1
	next := time.Now().Add(FixedBackoff)

	if err := inner.MarkRetryFailed(ctx, sw.db.DB, row.ID, retryCount, row.MaxRetries, next, cause.Error()); err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "event_id": row.EventID}).Error(
			"outbox: mark retry failed bookkeeping failed")
		return
	}

	fields := logrus.Fields{
		"event_id":    row.EventID,
		"topic":       row.Topic,
		"retry_count": retryCount,
		"error":       cause,
	}
	if retryCount >= row.MaxRetries {
		logrus.WithFields(fields).Error("outbox: entry exhausted retries, now FAILED and operator-visible")
	} else {
		logrus.WithFields(fields).Warn("outbox: republish failed, rescheduled")
	}
}
