package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// LoginStore persists `user_login_records`: at most one row per (user, date).
type LoginStore struct{}

// Record inserts a login-day row for userID on date, normalized to
// midnight. Returns whether this call created the row; a false return means
// the user already logged in that day, which is not an error.
func (LoginStore) Record(ctx context.Context, db Execer, userID string, date time.Time) (bool, error) {
	q := db.Rebind(`INSERT INTO user_login_records (user_id, login_date) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE user_id = user_id`)
	res, err := db.ExecContext(ctx, q, userID, normalizeDate(date))
	if err != nil {
		return false, errors.Wrap(err, "store: record login")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "store: record login rows affected")
	}
	return inserted(n), nil
}

// RecentDates returns the user's login dates within the window
// [since, now], most-recent first. The login-streak evaluator re-scans this
// on every call so it tolerates out-of-order inserts under redelivery.
func (LoginStore) RecentDates(ctx context.Context, db Execer, userID string, since time.Time) ([]time.Time, error) {
	var dates []time.Time
	q := db.Rebind(`SELECT login_date FROM user_login_records
		WHERE user_id = ? AND login_date >= ? ORDER BY login_date DESC`)
	if err := db.SelectContext(ctx, &dates, q, userID, normalizeDate(since)); err != nil {
		return nil, errors.Wrap(err, "store: recent login dates")
	}
	return dates, nil
}

// normalizeDate truncates t to midnight UTC so date-only comparisons are
// stable regardless of the timestamp's time-of-day component.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
