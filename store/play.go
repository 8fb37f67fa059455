package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// PlayStore persists `games_play_record`. Uniqueness is on event id so
// redelivery of the same ingress event never double-counts a score
// (invariant I5).
type PlayStore struct{}

// Record inserts a play-session row if eventID has not already been
// recorded. Returns whether this call created the row.
func (PlayStore) Record(ctx context.Context, db Execer, eventID, userID, gameID string, score int, playedAt time.Time) (bool, error) {
	q := db.Rebind(`INSERT INTO games_play_record (event_id, user_id, game_id, score, played_at)
		VALUES (?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE event_id = event_id`)
	res, err := db.ExecContext(ctx, q, eventID, userID, gameID, score, playedAt)
	if err != nil {
		return false, errors.Wrap(err, "store: record play session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "store: record play session rows affected")
	}
	return inserted(n), nil
}

// Stats returns the count of play sessions and their summed score within
// the window [since, now].
func (PlayStore) Stats(ctx context.Context, db Execer, userID string, since time.Time) (count int, sum int64, err error) {
	row := struct {
		Count int   `db:"count"`
		Sum   int64 `db:"sum"`
	}{}
	q := db.Rebind(`SELECT COUNT(*) AS count, COALESCE(SUM(score), 0) AS sum
		FROM games_play_record WHERE user_id = ? AND played_at >= ?`)
	if err := db.GetContext(ctx, &row, q, userID, since); err != nil {
		return 0, 0, errors.Wrap(err, "store: play session stats")
	}
	return row.Count, row.Sum, nil
}
