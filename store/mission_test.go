package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestMissionStore_Complete_WinsRace(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE missions SET is_completed = ?, completed_at = ? WHERE (id = ?) AND (is_completed = ?)")).
		WithArgs(true, now, int64(42), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := MissionStore{}.Complete(ctx, db, 42, now)
	require.NoError(t, err)
	require.True(t, won)
}

func TestMissionStore_Complete_LosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE missions SET is_completed = ?, completed_at = ? WHERE (id = ?) AND (is_completed = ?)")).
		WithArgs(true, now, int64(42), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := MissionStore{}.Complete(ctx, db, 42, now)
	require.NoError(t, err)
	require.False(t, won)
}

func TestMissionStore_ActiveCycleMissions_ScopesToLatestCycleStart(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	oldCycleStart := now.AddDate(0, 0, -1)
	since := now.Add(-30 * 24 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "user_id", "mission_type", "cycle_start", "is_completed", "completed_at", "created_at"}).
		AddRow(4, "u1", "LOGIN-3-CONSECUTIVE", now, false, nil, now).
		AddRow(5, "u1", "LAUNCH-3-DISTINCT", now, true, now, now).
		AddRow(1, "u1", "LOGIN-3-CONSECUTIVE", oldCycleStart, true, oldCycleStart, oldCycleStart).
		AddRow(2, "u1", "LAUNCH-3-DISTINCT", oldCycleStart, true, oldCycleStart, oldCycleStart).
		AddRow(3, "u1", "PLAY-3-SESSIONS-SCORE-OVER-1000", oldCycleStart, true, oldCycleStart, oldCycleStart)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missions WHERE user_id = ? ORDER BY cycle_start DESC")).
		WithArgs("u1").
		WillReturnRows(rows)

	got, err := MissionStore{}.ActiveCycleMissions(ctx, db, "u1", since)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		require.True(t, r.CycleStart.Equal(now), "expected only the active cycle's rows, got cycle_start %s", r.CycleStart)
	}
}

func TestMissionStore_CountInWindow(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	since := time.Date(2025, 12, 16, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM missions WHERE user_id = ? AND cycle_start >= ?")).
		WithArgs("u1", since).
		WillReturnRows(rows)

	count, err := MissionStore{}.CountInWindow(ctx, db.DB, "u1", since)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}
