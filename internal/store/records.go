package store

import (
	"context"
	"database/sql"

	"github.com/roach88/restql/internal/ir"
	"github.com/roach88/restql/internal/queryir"
	"github.com/roach88/restql/internal/querysql"
)

// Preparer is the only database capability the record operations need.
// *sql.DB, *sql.Conn and *sql.Tx all satisfy it, so the same code runs
// against a pool, a checked-out connection or an open transaction.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var compiler = querysql.NewSQLCompiler()

// GetRecord fetches the row of table whose id matches idText.
//
// idText goes through ir.ParseString, so a UUID-shaped id binds as a UUID
// and a datetime-shaped id binds as a timestamp. Returns a nil map when no
// row matches.
func GetRecord(ctx context.Context, p Preparer, table, idText string) (ir.OptionalJSONMap, error) {
	q, err := compiler.CompileGet(table, ir.ParseString(idText))
	if err != nil {
		return nil, err
	}

	rows, err := queryRows(ctx, p, q)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, ir.NewError(ir.ErrCodeDatabase, "get %s/%s: expected at most one row, got %d", table, idText, len(rows))
	}
}

// ListRecords runs the compiled SELECT for d and decodes every row in the
// order the database returns them. Never returns a nil slice on success.
func ListRecords(ctx context.Context, p Preparer, table string, d queryir.Descriptor) ([]ir.OptionalJSONMap, error) {
	q, err := compiler.CompileSelect(table, d)
	if err != nil {
		return nil, err
	}
	return queryRows(ctx, p, q)
}

// InsertRecord inserts data into table and returns the row produced by
// RETURNING *. A statement that returns no row is an EMPTY_RESULT error.
func InsertRecord(ctx context.Context, p Preparer, table string, data ir.JSONMap) (ir.OptionalJSONMap, error) {
	q, err := compiler.CompileInsert(table, data)
	if err != nil {
		return nil, err
	}

	rows, err := queryRows(ctx, p, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ir.NewError(ir.ErrCodeEmptyResult, "insert into %s returned no row", table)
	}
	return rows[0], nil
}

// queryRows prepares q, executes it with its positional parameters and
// decodes the full result set.
func queryRows(ctx context.Context, p Preparer, q querysql.Query) ([]ir.OptionalJSONMap, error) {
	stmt, err := p.PrepareContext(ctx, q.SQL)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeDatabase, err, "prepare %q", q.SQL)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, q.Args()...)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeDatabase, err, "execute %q", q.SQL)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeDatabase, err, "read column types")
	}
	decoder := ir.NewRowDecoder(ir.ColumnsOf(types))

	result := make([]ir.OptionalJSONMap, 0)
	for rows.Next() {
		row, err := decoder.Decode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, ir.WrapError(ir.ErrCodeDatabase, err, "iterate rows")
	}
	return result, nil
}
