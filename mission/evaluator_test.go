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

func TestEvaluateLoginStreak_ThreeConsecutive_Completes(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	d0 := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	d1 := d0.AddDate(0, 0, -1)
	d2 := d0.AddDate(0, 0, -2)
	rows := sqlmock.NewRows([]string{"login_date"}).AddRow(d0).AddRow(d1).AddRow(d2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT login_date FROM user_login_records")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	e := NewEvaluator(db)
	e.Now = func() time.Time { return now }

	require.True(t, e.EvaluateLoginStreak(context.Background(), "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluateLoginStreak_GapBreaksChain(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	d0 := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	d1 := d0.AddDate(0, 0, -3)
	rows := sqlmock.NewRows([]string{"login_date"}).AddRow(d0).AddRow(d1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT login_date FROM user_login_records")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	e := NewEvaluator(db)
	e.Now = func() time.Time { return now }

	require.False(t, e.EvaluateLoginStreak(context.Background(), "u1"))
}

func TestEvaluateDistinctLaunches_MeetsThreshold(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT game_id) FROM user_game_launches")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	e := NewEvaluator(db)
	e.Now = func() time.Time { return now }

	require.True(t, e.EvaluateDistinctLaunches(context.Background(), "u1"))
}

func TestEvaluatePlaySessions_StrictScoreBoundary(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"count", "sum"}).AddRow(3, 1000)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS count, COALESCE(SUM(score), 0) AS sum")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	e := NewEvaluator(db)
	e.Now = func() time.Time { return now }

	require.False(t, e.EvaluatePlaySessions(context.Background(), "u1"))
}

func TestEvaluatePlaySessions_OneOverStrictBoundary_Completes(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"count", "sum"}).AddRow(4, 1001)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS count, COALESCE(SUM(score), 0) AS sum")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	e := NewEvaluator(db)
	e.Now = func() time.Time { return now }

	require.True(t, e.EvaluatePlaySessions(context.Background(), "u1"))
}

func TestPredicate_ResolvesEachMissionType(t *testing.T) {
	db, _ := newMockDB(t)
	e := NewEvaluator(db)

	require.NotNil(t, e.Predicate(domain.MissionLoginConsecutive))
	require.NotNil(t, e.Predicate(domain.MissionLaunchDistinct))
	require.NotNil(t, e.Predicate(domain.MissionPlaySessionsScore))
}
