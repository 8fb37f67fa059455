// Package reward implements the Reward Distributor (C8), spec §4.8: on
// MissionCompleted consumption, award a fixed point total exactly once per
// reward period once all three of a user's cycle missions are complete.
package reward

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"missionpipeline/domain"
	"missionpipeline/store"
)

// Distributor implements spec §4.8.
type Distributor struct {
	DB       *store.DB
	missions store.MissionStore
	rewards  store.RewardStore
	users    store.UserStore

	Now func() time.Time
}

// NewDistributor constructs a Distributor wired to db.
func NewDistributor(db *store.DB) *Distributor {
	return &Distributor{DB: db, Now: time.Now}
}

func (d *Distributor) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Distribute implements spec §4.8 verbatim. It returns whether this call
// performed the disbursement; false covers both "not all three missions
// are complete yet" and "already rewarded this period" — both are
// legitimate no-ops the Reward consumer acks without complaint.
func (d *Distributor) Distribute(ctx context.Context, userID string) (bool, error) {
	now := d.now()
	since := now.Add(-domain.CycleWindow)

	rows, err := d.missions.ActiveCycleMissions(ctx, d.DB, userID, since)
	if err != nil {
		return false, domain.Retryable(err)
	}
	if countCompleted(rows) < domain.MissionsPerCycle {
		return false, nil
	}

	period := domain.PeriodOf(now)

	var awarded bool
	err = d.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		created, err := d.rewards.InsertIfAbsent(ctx, tx, userID, domain.RewardTypeMissionCompletion, period, domain.RewardPoints, now)
		if err != nil {
			return domain.Retryable(err)
		}
		if !created {
			// Already rewarded this period; nothing further to do.
			return nil
		}

		n, err := d.users.IncrementPoints(ctx, tx, userID, domain.RewardPoints)
		if err != nil {
			return domain.Retryable(err)
		}
		if n == 0 {
			return domain.Invariant(domain.ErrInvariantViolation)
		}

		awarded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return awarded, nil
}

// countCompleted counts completed rows in rows, which callers must have
// already scoped to a single cycle (see ActiveCycleMissions) — otherwise a
// superseded cycle's completed rows would sum together with a fresh cycle's
// and trigger a reward before the fresh cycle is actually done.
func countCompleted(rows []store.MissionRow) int {
	n := 0
	for _, r := range rows {
		if r.IsCompleted {
			n++
		}
	}
	return n
}
