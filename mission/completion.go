package mission

import (
	"context"
	"time"

	"missionpipeline/domain"
	"missionpipeline/store"
)

// CompletionEngine performs the single CAS linearization point described in
// spec §4.7: exactly one concurrent caller for a given user/mission
// observes a true transition.
type CompletionEngine struct {
	DB       *store.DB
	missions store.MissionStore

	Now func() time.Time
}

// NewCompletionEngine constructs a CompletionEngine wired to db.
func NewCompletionEngine(db *store.DB) *CompletionEngine {
	return &CompletionEngine{DB: db, Now: time.Now}
}

func (c *CompletionEngine) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// CheckAndComplete implements spec §4.7's check-and-complete(user,
// mission-type, predicate): it finds the user's active-cycle mission row of
// the given type, evaluates predicate only if that row isn't already
// completed, and CAS-transitions it. ActiveCycleMissions already scopes rows
// to the single active cycle (spec §3), so a superseded cycle's completed
// row from earlier in the 30-day window can never shadow the new cycle's
// incomplete row here. It reports whether THIS call performed the
// transition, which is what the caller uses to decide whether to publish a
// MissionCompleted event.
func (c *CompletionEngine) CheckAndComplete(
	ctx context.Context,
	userID string,
	mt domain.MissionType,
	predicate func(ctx context.Context, userID string) bool,
) (bool, error) {
	since := c.now().Add(-domain.CycleWindow)

	rows, err := c.missions.ActiveCycleMissions(ctx, c.DB, userID, since)
	if err != nil {
		return false, domain.Retryable(err)
	}

	row, found := findMission(rows, mt)
	if !found || row.IsCompleted {
		return false, nil
	}

	if !predicate(ctx, userID) {
		return false, nil
	}

	won, err := c.missions.Complete(ctx, c.DB, row.ID, c.now())
	if err != nil {
		return false, domain.Retryable(err)
	}
	return won, nil
}

// findMission selects mt's row out of rows, which callers must have already
// scoped to a single cycle (see ActiveCycleMissions) — this does not
// re-group by cycle_start itself.
func findMission(rows []store.MissionRow, mt domain.MissionType) (store.MissionRow, bool) {
	for _, r := range rows {
		if r.MissionType == string(mt) {
			return r, true
		}
	}
	return store.MissionRow{}, false
}
