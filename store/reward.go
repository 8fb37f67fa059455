package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// RewardStore persists `mission_rewards`. Uniqueness on
// (user, reward_type, period) is the sole idempotency guard for point
// disbursement (invariant I4).
type RewardStore struct{}

// InsertIfAbsent inserts a reward row for (userID, rewardType, period) if
// one does not already exist. Returns whether this call created the row;
// false means the user was already rewarded for this period.
func (RewardStore) InsertIfAbsent(ctx context.Context, db Execer, userID, rewardType, period string, points int, now time.Time) (bool, error) {
	q := db.Rebind(`INSERT INTO mission_rewards (user_id, reward_type, period, points, distributed_at)
		VALUES (?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE user_id = user_id`)
	res, err := db.ExecContext(ctx, q, userID, rewardType, period, points, now)
	if err != nil {
		return false, errors.Wrap(err, "store: insert reward")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "store: insert reward rows affected")
	}
	return inserted(n), nil
}

// CountForUser returns how many reward rows exist for userID: the count
// that users.points tracks (points == 777 * reward count).
func (RewardStore) CountForUser(ctx context.Context, db Execer, userID string) (int, error) {
	var count int
	q := db.Rebind(`SELECT COUNT(*) FROM mission_rewards WHERE user_id = ?`)
	if err := db.GetContext(ctx, &count, q, userID); err != nil {
		return 0, errors.Wrap(err, "store: count rewards for user")
	}
	return count, nil
}
