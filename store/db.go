package store

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Config is the subset of connection settings the Event Store needs. It is
// populated from config.AppConfig, not hardcoded, unlike the teacher's
// client.go.
type Config struct {
	DBName          string
	User            string
	Password        string
	Addr            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps *sqlx.DB. Most repository methods take an Execer (a *sqlx.DB or
// *sqlx.Tx); the builder-based MissionStore.ActiveCycleMissions and
// MissionStore.Complete take a *DB.
type DB struct {
	*sqlx.DB
}

// Open dials MySQL per cfg and verifies connectivity.
func Open(cfg Config) (*DB, error) {
	jst, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		jst = time.UTC
	}

	mysqlCfg := mysql.Config{
		DBName:               cfg.DBName,
		User:                 cfg.User,
		Passwd:               cfg.Password,
		Addr:                 cfg.Addr,
		Net:                  "tcp",
		ParseTime:            true,
		Collation:            "utf8mb4_unicode_ci",
		AllowNativePasswords: true,
		Loc:                  jst,
	}

	db, err := sqlx.Connect("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "store: open mysql connection")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{DB: db}, nil
}

// inserted classifies an INSERT ... ON DUPLICATE KEY UPDATE result:
// a 0-row update means the unique key already existed.
func inserted(rowsAffected int64) bool {
	// MySQL reports 1 for a fresh insert and 0 for a no-op duplicate-key
	// update (the `<pk>=<pk>` clause never changes the row, so RowsAffected
	// is 0, not 2 as it would be for an update that actually changes a
	// column).
	return rowsAffected == 1
}
