package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/slotweaver/internal/profile"
	"github.com/hrygo/slotweaver/store"
)

// ============================================================================
// SQLITE SUPPORT (Local calendars and tests)
// ============================================================================
// SQLite keeps a single-user calendar in one file next to the data directory.
// ":memory:" DSNs are used by tests; every connection would otherwise see its
// own empty database, so the pool is pinned to one connection.
// ============================================================================

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database described by profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 10000"}
	if !isMemoryDSN(profile.DSN) {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", pragma)
		}
	}

	return &DB{
		db:      db,
		profile: profile,
	}, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var count int
	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'calendar_event'",
	).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check if database is initialized: %w", err)
	}
	return count > 0, nil
}
