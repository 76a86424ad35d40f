// Package testutil provides fixtures shared by restql tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/restql/internal/config"
	"github.com/roach88/restql/internal/store"
)

// AccountsSchema is a small table covering every column kind restql
// decodes.
const AccountsSchema = `
CREATE TABLE accounts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT NOT NULL UNIQUE,
	balance    REAL NOT NULL DEFAULT 0,
	active     BOOLEAN NOT NULL DEFAULT 1,
	ref        UUID,
	created_on DATETIME
)`

// NewSQLiteStore opens a file-backed SQLite store under t.TempDir and
// runs each schema statement. The store is closed when the test ends.
func NewSQLiteStore(t *testing.T, schema ...string) *store.Store {
	t.Helper()
	return openSQLite(t, filepath.Join(t.TempDir(), "test.db"), schema)
}

// SQLiteDSN creates a SQLite database file with schema applied and returns
// its path, for code under test that opens the database itself.
func SQLiteDSN(t *testing.T, schema ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s := openSQLite(t, path, schema)
	if err := s.Close(); err != nil {
		t.Fatalf("close sqlite store: %v", err)
	}
	return path
}

func openSQLite(t *testing.T, path string, schema []string) *store.Store {
	t.Helper()

	cfg := config.Database{Driver: config.DriverSQLite, DSN: path}
	s, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for _, stmt := range schema {
		if _, err := s.DB().Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return s
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, s *store.Store, table string) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
