package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// LaunchStore persists `user_game_launches`. Uniqueness is on
// (user, game, launch date); repeated launches of the same game on the same
// day collapse to one row.
type LaunchStore struct{}

// Record inserts a launch row if one does not already exist for
// (userID, gameID, date).
func (LaunchStore) Record(ctx context.Context, db Execer, userID, gameID string, date time.Time) (bool, error) {
	q := db.Rebind(`INSERT INTO user_game_launches (user_id, game_id, launch_date) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE user_id = user_id`)
	res, err := db.ExecContext(ctx, q, userID, gameID, normalizeDate(date))
	if err != nil {
		return false, errors.Wrap(err, "store: record launch")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "store: record launch rows affected")
	}
	return inserted(n), nil
}

// DistinctGameCount counts distinct game ids launched within the window
// [since, now].
func (LaunchStore) DistinctGameCount(ctx context.Context, db Execer, userID string, since time.Time) (int, error) {
	var count int
	q := db.Rebind(`SELECT COUNT(DISTINCT game_id) FROM user_game_launches
		WHERE user_id = ? AND launch_date >= ?`)
	if err := db.GetContext(ctx, &count, q, userID, normalizeDate(since)); err != nil {
		return 0, errors.Wrap(err, "store: distinct launch count")
	}
	return count, nil
}
