package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/restql/internal/config"
	"github.com/roach88/restql/internal/ir"
	"github.com/roach88/restql/internal/queryir"
)

// Store is a connection pool with record operations bound to it.
type Store struct {
	db *sql.DB
}

// Open connects to the database described by cfg and verifies the
// connection.
//
// For sqlite3 the pool is limited to a single connection and the
// following pragmas are applied:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(ctx context.Context, cfg config.Database) (*Store, error) {
	db, err := sql.Open(cfg.Driver, cfg.DataSourceName())
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeDatabase, err, "open %s database", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, ir.WrapError(ir.ErrCodeDatabase, err, "connect to %s database", cfg.Driver)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite only supports one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	return &Store{db: db}, nil
}

// New wraps an existing pool. The caller keeps ownership of db
// configuration; Close still closes it.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying pool. The transaction engine checks
// connections out of it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Get fetches one row by id text. See GetRecord.
func (s *Store) Get(ctx context.Context, table, idText string) (ir.OptionalJSONMap, error) {
	return GetRecord(ctx, s.db, table, idText)
}

// List returns every row matching d. See ListRecords.
func (s *Store) List(ctx context.Context, table string, d queryir.Descriptor) ([]ir.OptionalJSONMap, error) {
	return ListRecords(ctx, s.db, table, d)
}

// Insert inserts one row and returns it. See InsertRecord.
func (s *Store) Insert(ctx context.Context, table string, data ir.JSONMap) (ir.OptionalJSONMap, error) {
	return InsertRecord(ctx, s.db, table, data)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return ir.WrapError(ir.ErrCodeDatabase, err, "execute %q", pragma)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
