// Package mission implements the Mission Initializer (C5), Mission
// Evaluator (C6), and Completion Engine (C7) from spec §4.5-§4.7.
package mission

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"missionpipeline/domain"
	"missionpipeline/redisx"
	"missionpipeline/store"
)

// initLockPrefix namespaces the mission-init advisory lock per spec §6.
const initLockPrefix = "mission:init:"

// pollInterval and pollAttempts implement spec §4.5 step 3's "poll the
// Event Store for up to 5 seconds (50 x 100ms)" wait loop.
const (
	pollInterval = 100 * time.Millisecond
	pollAttempts = 50
)

// Initializer ensures three missions exist for a user in the active cycle,
// spec §4.5.
type Initializer struct {
	DB       *store.DB
	Locker   *redisx.Client
	missions store.MissionStore

	// Now is injectable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

// NewInitializer constructs an Initializer wired to db and locker.
func NewInitializer(db *store.DB, locker *redisx.Client) *Initializer {
	return &Initializer{DB: db, Locker: locker, Now: time.Now}
}

func (i *Initializer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// EnsureMissions implements spec §4.5 verbatim.
func (i *Initializer) EnsureMissions(ctx context.Context, userID string) error {
	now := i.now()
	since := now.Add(-domain.CycleWindow)

	rows, err := i.missions.ActiveCycleMissions(ctx, i.DB, userID, since)
	if err != nil {
		return domain.Retryable(err)
	}

	if len(rows) >= domain.MissionsPerCycle {
		if allCompleted(rows) {
			// Cycle consumed: fall through to start a fresh one.
		} else {
			// Active cycle stands; nothing to do.
			return nil
		}
	}

	lockKey := initLockPrefix + userID
	acquired, _, err := i.Locker.TryLock(ctx, lockKey, redisx.InitLockTTL)
	if err != nil {
		return domain.Retryable(err)
	}

	if !acquired {
		return i.waitForInit(ctx, userID, now)
	}
	defer func() { _ = i.Locker.Unlock(ctx, lockKey) }()

	return i.insertCycleLocked(ctx, userID, now)
}

// waitForInit polls for another worker's in-flight init to land today's
// cycle, per spec §4.5 step 3: 50 attempts at 100ms, then a retryable error
// so the bus redelivers (spec §9's resolved Open Question). It checks rows
// keyed to today's cycle-start specifically, not the full 30-day window:
// the race being waited on is always "has today's cycle landed yet", even
// when an older, already-completed cycle still sits inside that window.
func (i *Initializer) waitForInit(ctx context.Context, userID string, now time.Time) error {
	today := normalizeDate(now)
	for attempt := 0; attempt < pollAttempts; attempt++ {
		count, err := i.missions.CountInWindow(ctx, i.DB.DB, userID, today)
		if err != nil {
			return domain.Retryable(err)
		}
		if count >= domain.MissionsPerCycle {
			return nil
		}

		select {
		case <-ctx.Done():
			return domain.Retryable(ctx.Err())
		case <-time.After(pollInterval):
		}
	}
	return domain.Retryable(domain.ErrLockNotAcquired)
}

// insertCycleLocked re-checks, under the lock, whether today's cycle already
// landed (double-checked locking, spec §4.5 step 4) and inserts a fresh one
// if not. Checking against today's cycle-start rather than the full 30-day
// window lets a fresh cycle start immediately when the prior one completed
// early, instead of being blocked until the old rows age out of the window.
// The commit happens before the caller's deferred Unlock, per spec: "the
// commit MUST precede the release so that any competing waiter observes the
// rows."
func (i *Initializer) insertCycleLocked(ctx context.Context, userID string, now time.Time) error {
	today := normalizeDate(now)
	return i.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		count, err := i.missions.CountInWindow(ctx, tx, userID, today)
		if err != nil {
			return domain.Retryable(err)
		}
		if count >= domain.MissionsPerCycle {
			return nil
		}

		types := make([]string, 0, len(domain.MissionTypes))
		for _, mt := range domain.MissionTypes {
			types = append(types, string(mt))
		}
		return i.missions.InsertCycle(ctx, tx, userID, today, types)
	})
}

func allCompleted(rows []store.MissionRow) bool {
	for _, r := range rows {
		if !r.IsCompleted {
			return false
		}
	}
	return true
}

func normalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
