package reward

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"missionpipeline/domain"
	"missionpipeline/store"
)

func newMockDB(t *testing.T) (*store.DB, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rawDB.Close() })
	return &store.DB{DB: sqlx.NewDb(rawDB, "mysql")}, mock
}

func completedCycleRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "mission_type", "cycle_start", "is_completed", "completed_at", "created_at"}).
		AddRow(1, "u1", "LOGIN-3-CONSECUTIVE", now.AddDate(0, 0, -5), true, now, now).
		AddRow(2, "u1", "LAUNCH-3-DISTINCT", now.AddDate(0, 0, -5), true, now, now).
		AddRow(3, "u1", "PLAY-3-SESSIONS-SCORE-OVER-1000", now.AddDate(0, 0, -5), true, now, now)
}

func TestDistribute_AllThreeComplete_AwardsOnce(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(completedCycleRows(now))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mission_rewards")).
		WithArgs("u1", domain.RewardTypeMissionCompletion, "2026-01", domain.RewardPoints, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET points = points + ? WHERE user_id = ?")).
		WithArgs(int64(domain.RewardPoints), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	d := NewDistributor(db)
	d.Now = func() time.Time { return now }

	awarded, err := d.Distribute(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, awarded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDistribute_IncompleteCycle_NoOp(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "user_id", "mission_type", "cycle_start", "is_completed", "completed_at", "created_at"}).
		AddRow(1, "u1", "LOGIN-3-CONSECUTIVE", now.AddDate(0, 0, -5), true, now, now).
		AddRow(2, "u1", "LAUNCH-3-DISTINCT", now.AddDate(0, 0, -5), false, nil, now).
		AddRow(3, "u1", "PLAY-3-SESSIONS-SCORE-OVER-1000", now.AddDate(0, 0, -5), false, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(rows)

	d := NewDistributor(db)
	d.Now = func() time.Time { return now }

	awarded, err := d.Distribute(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, awarded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDistribute_AlreadyRewardedThisPeriod_IsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(completedCycleRows(now))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mission_rewards")).
		WithArgs("u1", domain.RewardTypeMissionCompletion, "2026-01", domain.RewardPoints, now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	d := NewDistributor(db)
	d.Now = func() time.Time { return now }

	awarded, err := d.Distribute(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, awarded)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestDistribute_PriorCycleRewarded_FreshCycleOneDone_IsNoop guards against
// the month-boundary scenario where an already-rewarded cycle's completed
// rows are still inside the 30-day window alongside a freshly-started
// cycle: a user finishes all three missions on 2025-11-30 (rewarded), then
// a single mission of the new cycle completes on 2025-12-01. Distribute
// must count only the active (latest cycle_start) cycle's completions, not
// the old cycle's plus the new one's, or it would double-reward the user
// after just one of the new cycle's three missions is done.
func TestDistribute_PriorCycleRewarded_FreshCycleOneDone_IsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	oldCycleStart := now.AddDate(0, 0, -1)

	rows := sqlmock.NewRows([]string{"id", "user_id", "mission_type", "cycle_start", "is_completed", "completed_at", "created_at"}).
		// Fresh (active) cycle, returned first per ORDER BY cycle_start DESC.
		AddRow(4, "u1", "LOGIN-3-CONSECUTIVE", now, false, nil, now).
		AddRow(5, "u1", "LAUNCH-3-DISTINCT", now, true, now, now).
		AddRow(6, "u1", "PLAY-3-SESSIONS-SCORE-OVER-1000", now, false, nil, now).
		// Superseded cycle: fully completed and already rewarded in
		// November, but its cycle_start still falls within the 30-day
		// window looking back from December 1st.
		AddRow(1, "u1", "LOGIN-3-CONSECUTIVE", oldCycleStart, true, oldCycleStart, oldCycleStart).
		AddRow(2, "u1", "LAUNCH-3-DISTINCT", oldCycleStart, true, oldCycleStart, oldCycleStart).
		AddRow(3, "u1", "PLAY-3-SESSIONS-SCORE-OVER-1000", oldCycleStart, true, oldCycleStart, oldCycleStart)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(rows)

	d := NewDistributor(db)
	d.Now = func() time.Time { return now }

	awarded, err := d.Distribute(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, awarded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDistribute_OrphanedRewardRow_RaisesInvariant(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(completedCycleRows(now))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mission_rewards")).
		WithArgs("u1", domain.RewardTypeMissionCompletion, "2026-01", domain.RewardPoints, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET points = points + ? WHERE user_id = ?")).
		WithArgs(int64(domain.RewardPoints), "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	d := NewDistributor(db)
	d.Now = func() time.Time { return now }

	_, err := d.Distribute(context.Background(), "u1")
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrInvariantViolation))
	require.NoError(t, mock.ExpectationsWereMet())
}
