package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
)

// Execer is satisfied by both *sqlx.DB and *sqlx.Tx, letting every repository
// method run either standalone or inside a caller-managed transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

// WithTx runs fn inside a transaction, committing on a nil return and
// rolling back otherwise. The Mission Initializer's double-checked-locking
// insert and the Reward Distributor's guard-row-plus-points-increment both
// rely on this to keep their two writes atomic.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "store: begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "store: rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "store: commit transaction")
	}
	return nil
}
