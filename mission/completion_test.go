package mission

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"missionpipeline/domain"
)

func activeCycleRows(now time.Time, completedLogin bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "mission_type", "cycle_start", "is_completed", "completed_at", "created_at"}).
		AddRow(1, "u1", "LOGIN-3-CONSECUTIVE", now.AddDate(0, 0, -5), completedLogin, nil, now).
		AddRow(2, "u1", "LAUNCH-3-DISTINCT", now.AddDate(0, 0, -5), false, nil, now).
		AddRow(3, "u1", "PLAY-3-SESSIONS-SCORE-OVER-1000", now.AddDate(0, 0, -5), false, nil, now)
}

func TestCompletionEngine_PredicateTrue_WinsTransition(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(activeCycleRows(now, false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE missions SET is_completed = ?, completed_at = ? WHERE (id = ?) AND (is_completed = ?)")).
		WithArgs(true, now, int64(1), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	eng := NewCompletionEngine(db)
	eng.Now = func() time.Time { return now }

	won, err := eng.CheckAndComplete(context.Background(), "u1", domain.MissionLoginConsecutive,
		func(context.Context, string) bool { return true })
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionEngine_PredicateFalse_NoUpdateIssued(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(activeCycleRows(now, false))

	eng := NewCompletionEngine(db)
	eng.Now = func() time.Time { return now }

	won, err := eng.CheckAndComplete(context.Background(), "u1", domain.MissionLoginConsecutive,
		func(context.Context, string) bool { return false })
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionEngine_AlreadyCompleted_IsNoopWithoutEvaluatingPredicate(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(activeCycleRows(now, true))

	eng := NewCompletionEngine(db)
	eng.Now = func() time.Time { return now }

	called := false
	won, err := eng.CheckAndComplete(context.Background(), "u1", domain.MissionLoginConsecutive,
		func(context.Context, string) bool { called = true; return true })
	require.NoError(t, err)
	require.False(t, won)
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestCompletionEngine_StaleCycleCompleted_FreshCycleStillTransitions guards
// against a superseded cycle's completed row shadowing the active cycle's
// incomplete row of the same mission type. Both rows share a mission_type,
// but only the one with the latest cycle_start is the active cycle; the CAS
// transition must target that row, not the older completed one.
func TestCompletionEngine_StaleCycleCompleted_FreshCycleStillTransitions(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	oldCycleStart := now.AddDate(0, 0, -1)

	rows := sqlmock.NewRows([]string{"id", "user_id", "mission_type", "cycle_start", "is_completed", "completed_at", "created_at"}).
		AddRow(5, "u1", "LOGIN-3-CONSECUTIVE", now, false, nil, now).
		AddRow(1, "u1", "LOGIN-3-CONSECUTIVE", oldCycleStart, true, oldCycleStart, oldCycleStart)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE missions SET is_completed = ?, completed_at = ? WHERE (id = ?) AND (is_completed = ?)")).
		WithArgs(true, now, int64(5), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	eng := NewCompletionEngine(db)
	eng.Now = func() time.Time { return now }

	won, err := eng.CheckAndComplete(context.Background(), "u1", domain.MissionLoginConsecutive,
		func(context.Context, string) bool { return true })
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionEngine_MissingMission_ReturnsFalse(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "user_id", "mission_type", "cycle_start", "is_completed", "completed_at", "created_at"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(rows)

	eng := NewCompletionEngine(db)
	eng.Now = func() time.Time { return now }

	won, err := eng.CheckAndComplete(context.Background(), "u1", domain.MissionLoginConsecutive,
		func(context.Context, string) bool { return true })
	require.NoError(t, err)
	require.False(t, won)
}
