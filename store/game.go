package store

import (
	"context"

	"github.com/cockroachdb/errors"
)

// GameStore persists the static `games` catalog. Catalog lookup itself is
// out of scope (spec §1); this repository only backs the existence checks
// the (external) HTTP layer is contractually expected to perform before
// publishing a launch/play event.
type GameStore struct{}

// EnsureExists inserts a game row if one does not already exist for gameID.
func (GameStore) EnsureExists(ctx context.Context, db Execer, gameID, name string) (bool, error) {
	q := db.Rebind(`INSERT INTO games (game_id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE game_id = game_id`)
	res, err := db.ExecContext(ctx, q, gameID, name)
	if err != nil {
		return false, errors.Wrap(err, "store: ensure game exists")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "store: ensure game exists rows affected")
	}
	return inserted(n), nil
}

// Exists reports whether gameID is a known game.
func (GameStore) Exists(ctx context.Context, db Execer, gameID string) (bool, error) {
	var count int
	q := db.Rebind(`SELECT COUNT(*) FROM games WHERE game_id = ?`)
	if err := db.GetContext(ctx, &count, q, gameID); err != nil {
		return false, errors.Wrap(err, "store: game exists")
	}
	return count > 0, nil
}
