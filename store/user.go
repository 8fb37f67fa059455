package store

import (
	"context"

	"github.com/cockroachdb/errors"
)

// UserStore persists the `users` table: identity plus a monotonically
// non-decreasing point total.
type UserStore struct{}

// EnsureExists inserts a user row with zero points if one does not already
// exist. Returns whether this call created the row.
func (UserStore) EnsureExists(ctx context.Context, db Execer, userID string) (bool, error) {
	q := db.Rebind(`INSERT INTO users (user_id, points) VALUES (?, 0)
		ON DUPLICATE KEY UPDATE user_id = user_id`)
	res, err := db.ExecContext(ctx, q, userID)
	if err != nil {
		return false, errors.Wrap(err, "store: ensure user exists")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "store: ensure user exists rows affected")
	}
	return inserted(n), nil
}

// Get fetches a single user row.
func (UserStore) Get(ctx context.Context, db Execer, userID string) (UserRow, error) {
	var row UserRow
	q := db.Rebind(`SELECT user_id, points, created_at, updated_at FROM users WHERE user_id = ?`)
	if err := db.GetContext(ctx, &row, q, userID); err != nil {
		return UserRow{}, errors.Wrap(err, "store: get user")
	}
	return row, nil
}

// IncrementPoints adds delta to the user's point total and returns the
// number of rows affected. The Reward Distributor treats 0 rows affected as
// an invariant violation: the guard Reward row must never be orphaned.
func (UserStore) IncrementPoints(ctx context.Context, db Execer, userID string, delta int64) (int64, error) {
	q := db.Rebind(`UPDATE users SET points = points + ? WHERE user_id = ?`)
	res, err := db.ExecContext(ctx, q, delta, userID)
	if err != nil {
		return 0, errors.Wrap(err, "store: increment points")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "store: increment points rows affected")
	}
	return n, nil
}
