package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/slotweaver/internal/profile"
	"github.com/hrygo/slotweaver/store"
	"github.com/hrygo/slotweaver/store/db"
)

// NewTestingStore opens a migrated store for t. SQLite runs in memory; set
// DRIVER=postgres and POSTGRES_TEST_DSN to run against PostgreSQL.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	p := getTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	ts := store.New(driver, p)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		_ = ts.Close()
	})
	return ts
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: getDriverFromEnv(),
	}
	switch p.Driver {
	case "postgres":
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
		p.DSN = dsn
	default:
		// The sqlite driver pins its pool to one connection, so every store
		// gets its own private in-memory database.
		p.DSN = ":memory:"
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
