package store

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	sqlb "missionpipeline/mysql"
)

// MissionStore persists `missions`. Rows are inserted only by the Mission
// Initializer (insert-if-absent, three at a time per cycle) and mutated only
// by the Completion Engine's single CAS transition (invariant I3: never
// completed -> incomplete).
type MissionStore struct{}

// ActiveCycleMissions returns only the user's mission rows belonging to the
// single active cycle (spec §3: "a user has at most one active cycle at a
// time"), not every row whose cycle_start merely falls within [since, now].
// A 30-day window can still contain more than one cycle's rows — e.g. a
// cycle that completed and rolled over to a fresh one a day later — so the
// active cycle is the one with the latest cycle_start among rows in the
// window; rows from an older, already-superseded cycle are excluded even
// though their cycle_start is still inside the window. Grounded on the
// teacher's generic select builder; the window cutoff and the
// latest-cycle_start grouping both happen in Go because the builder only
// exposes Eq/NotEq, not range comparisons or GROUP BY.
func (MissionStore) ActiveCycleMissions(ctx context.Context, db *DB, userID string, since time.Time) ([]MissionRow, error) {
	rows, err := sqlb.SelectFrom[MissionRow]("missions").
		Where(sqlb.Eq("user_id", userID)).
		OrderBy(&sqlb.OrderbyCond{Column: "cycle_start", Direction: sqlb.DESC}).
		FetchAll(ctx, db.DB)
	if err != nil {
		return nil, errors.Wrap(err, "store: active cycle missions")
	}

	cutoff := normalizeDate(since)
	var latest time.Time
	out := rows[:0]
	for _, r := range rows {
		if r.CycleStart.Before(cutoff) {
			continue
		}
		if latest.IsZero() {
			// Rows are ORDER BY cycle_start DESC, so the first in-window
			// row carries the active cycle's cycle_start.
			latest = r.CycleStart
		}
		if !r.CycleStart.Equal(latest) {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MissionType < out[j].MissionType })
	return out, nil
}

// CountInWindow counts mission rows for userID with cycle_start within
// [since, now]. Used both by the Initializer's poll while another worker
// holds the init lock and its double-checked recount after acquiring it.
func (MissionStore) CountInWindow(ctx context.Context, db Execer, userID string, since time.Time) (int, error) {
	var count int
	q := db.Rebind(`SELECT COUNT(*) FROM missions WHERE user_id = ? AND cycle_start >= ?`)
	if err := db.GetContext(ctx, &count, q, userID, normalizeDate(since)); err != nil {
		return 0, errors.Wrap(err, "store: count missions in window")
	}
	return count, nil
}

// InsertCycle inserts one row per mission type for userID at cycleStart,
// insert-if-absent per row so a racing double-insert (e.g. two callers both
// passing the pre-lock check before the lock existed) never violates
// invariant I2. Intended to run inside the caller's transaction, after the
// double-checked recount in spec §4.5 step 4.
func (MissionStore) InsertCycle(ctx context.Context, tx *sqlx.Tx, userID string, cycleStart time.Time, missionTypes []string) error {
	q := tx.Rebind(`INSERT INTO missions (user_id, mission_type, cycle_start, is_completed)
		VALUES (?, ?, ?, 0) ON DUPLICATE KEY UPDATE user_id = user_id`)
	for _, mt := range missionTypes {
		if _, err := tx.ExecContext(ctx, q, userID, mt, normalizeDate(cycleStart)); err != nil {
			return errors.Wrapf(err, "store: insert mission cycle row %s", mt)
		}
	}
	return nil
}

// Complete performs the CAS transition: it updates is_completed only if the
// row is not already completed, and reports whether this call performed the
// transition via RowsAffected (1 = this caller won the race, 0 = another
// worker already had).
func (MissionStore) Complete(ctx context.Context, db *DB, id int64, now time.Time) (bool, error) {
	n, err := sqlb.UpdateFrom("missions").
		Set(sqlb.UpdateCond{Set: "is_completed", Arg: true}, sqlb.UpdateCond{Set: "completed_at", Arg: now}).
		Where(sqlb.And(sqlb.Eq("id", id), sqlb.Eq("is_completed", false))).
		Exec(ctx, db.DB)
	if err != nil {
		return false, errors.Wrap(err, "store: complete mission")
	}
	return n == 1, nil
}
