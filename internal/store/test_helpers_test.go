package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/restql/internal/config"
)

const accountsSchema = `
CREATE TABLE accounts (
	id         UUID PRIMARY KEY,
	username   TEXT NOT NULL,
	score      REAL,
	active     BOOLEAN,
	created_on DATETIME
)`

// createTestStore opens a file-backed SQLite store under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), config.Database{Driver: config.DriverSQLite, DSN: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createAccountsStore opens a test store with the accounts table created.
func createAccountsStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if _, err := s.DB().Exec(accountsSchema); err != nil {
		t.Fatalf("create accounts table: %v", err)
	}
	return s
}
