package mission

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"missionpipeline/domain"
	"missionpipeline/store"
)

// Evaluator implements the three closed-form completion predicates, spec
// §4.6. Every predicate is a pure read from the Event Store: a read failure
// logs and returns false rather than marking a mission complete.
type Evaluator struct {
	DB       *store.DB
	logins   store.LoginStore
	launches store.LaunchStore
	plays    store.PlayStore

	Now func() time.Time
}

// NewEvaluator constructs an Evaluator wired to db.
func NewEvaluator(db *store.DB) *Evaluator {
	return &Evaluator{DB: db, Now: time.Now}
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Evaluator) since() time.Time {
	return e.now().Add(-domain.CycleWindow)
}

// EvaluateLoginStreak implements LOGIN-3-CONSECUTIVE: starting from the
// most-recent login date, count while successive rows equal
// (previous date - 1 day), stopping on the first gap. The chain anchors at
// the most recent login, not at "today".
func (e *Evaluator) EvaluateLoginStreak(ctx context.Context, userID string) bool {
	dates, err := e.logins.RecentDates(ctx, e.DB.DB, userID, e.since())
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "user_id": userID}).Error(
			"mission: read login dates failed")
		return false
	}

	streak := 0
	for i, d := range dates {
		if i == 0 {
			streak = 1
			continue
		}
		if dates[i-1].Sub(d) == 24*time.Hour {
			streak++
			continue
		}
		break
	}
	return streak >= 3
}

// EvaluateDistinctLaunches implements LAUNCH-3-DISTINCT.
func (e *Evaluator) EvaluateDistinctLaunches(ctx context.Context, userID string) bool {
	count, err := e.launches.DistinctGameCount(ctx, e.DB.DB, userID, e.since())
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "user_id": userID}).Error(
			"mission: read distinct launch count failed")
		return false
	}
	return count >= 3
}

// EvaluatePlaySessions implements PLAY-3-SESSIONS-SCORE-OVER-1000: count >= 3
// AND sum strictly greater than 1000.
func (e *Evaluator) EvaluatePlaySessions(ctx context.Context, userID string) bool {
	count, sum, err := e.plays.Stats(ctx, e.DB.DB, userID, e.since())
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "user_id": userID}).Error(
			"mission: read play session stats failed")
		return false
	}
	return count >= 3 && sum > 1000
}

// Predicate evaluates the named mission's completion condition for userID.
// Unrecognized mission types always evaluate false.
func (e *Evaluator) Predicate(mt domain.MissionType) func(ctx context.Context, userID string) bool {
	switch mt {
	case domain.MissionLoginConsecutive:
		return e.EvaluateLoginStreak
	case domain.MissionLaunchDistinct:
		return e.EvaluateDistinctLaunches
	case domain.MissionPlaySessionsScore:
		return e.EvaluatePlaySessions
	default:
		return func(context.Context, string) bool { return false }
	}
}
