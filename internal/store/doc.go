// Package store reads and writes table rows as ir.OptionalJSONMap values.
//
// The record operations (GetRecord, ListRecords, InsertRecord) take a
// Preparer rather than a connection, so the transaction engine can run
// them inside an open *sql.Tx while the CLI runs them against the pool.
//
// # Database Configuration
//
// Open supports two drivers:
//   - postgres (github.com/lib/pq): pool sized from config
//   - sqlite3 (github.com/mattn/go-sqlite3): single connection, WAL mode,
//     busy_timeout=5000, foreign_keys=ON
//
// Both drivers accept $n placeholders, which is the only parameter style
// the SQL compiler emits.
//
// Identifiers are spliced into SQL text unescaped. Callers must validate
// table and column names before they reach this package.
package store
