package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"missionpipeline/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rawDB.Close() })

	db := &store.DB{DB: sqlx.NewDb(rawDB, "mysql")}
	return NewStore(db, "", nil), mock
}

func TestStore_Enqueue_UsesNoneCodecByDefault(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO message_outbox").
		WithArgs("ev-1", "mission-completed-event", "MissionCompleted", "none", []byte(`{"a":1}`),
			"PENDING", MaxRetries, now.Add(FixedBackoff)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Enqueue(ctx, "ev-1", "mission-completed-event", "MissionCompleted", []byte(`{"a":1}`), now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewEventID_IsNonEmptyAndUnique(t *testing.T) {
	a := NewEventID()
	b := NewEventID()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
