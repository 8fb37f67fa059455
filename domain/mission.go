package domain

import "time"

// MissionType is one of the three closed mission values. It is stored as the
// table's `mission_type` column and carried verbatim on MissionCompleted
// events.
type MissionType string

const (
	MissionLoginConsecutive   MissionType = "LOGIN-3-CONSECUTIVE"
	MissionLaunchDistinct     MissionType = "LAUNCH-3-DISTINCT"
	MissionPlaySessionsScore  MissionType = "PLAY-3-SESSIONS-SCORE-OVER-1000"
)

// MissionTypes lists every closed mission value, in the order a fresh cycle
// inserts them.
var MissionTypes = []MissionType{
	MissionLoginConsecutive,
	MissionLaunchDistinct,
	MissionPlaySessionsScore,
}

// MissionsPerCycle is the fixed count of missions a cycle tracks. The Mission
// Initializer's "already have a full, all-complete cycle" short-circuit and
// the Reward Distributor's "all three done" check both key off this.
const MissionsPerCycle = len(MissionTypes)

// CycleWindow is the rolling lookback used for both the active-cycle
// definition and every evaluator predicate. It is 30 days, not a calendar
// month.
const CycleWindow = 30 * 24 * time.Hour

const (
	// RewardTypeMissionCompletion is the sole reward type this system grants.
	RewardTypeMissionCompletion = "MISSION_COMPLETION"
	// RewardPoints is the fixed-point award per completed cycle.
	RewardPoints = 777
)

// PeriodOf formats t as the YYYY-MM reward-period key.
func PeriodOf(t time.Time) string {
	return t.Format("2006-01")
}
