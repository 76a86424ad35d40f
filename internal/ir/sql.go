package ir

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Value implements driver.Valuer so any Value binds directly as a
// positional parameter.
func (b Bool) Value() (driver.Value, error) { return bool(b), nil }

// Value implements driver.Valuer. UUIDs bind as their hyphenated text,
// which both Postgres uuid columns and SQLite text columns accept.
func (u UUID) Value() (driver.Value, error) { return u.String(), nil }

// Value implements driver.Valuer.
func (i Int) Value() (driver.Value, error) { return int64(i), nil }

// Value implements driver.Valuer.
func (f Float) Value() (driver.Value, error) { return float64(f), nil }

// Value implements driver.Valuer.
func (d DateTimeTz) Value() (driver.Value, error) { return time.Time(d), nil }

// Value implements driver.Valuer.
func (d DateTime) Value() (driver.Value, error) { return time.Time(d).UTC(), nil }

// Value implements driver.Valuer.
func (s String) Value() (driver.Value, error) { return string(s), nil }

// ColumnKind is the Value variant a result column decodes to.
type ColumnKind int

const (
	// KindString is the fallback for every unrecognized column type.
	KindString ColumnKind = iota
	KindBool
	KindInt
	KindFloat
	KindDateTime
	KindDateTimeTz
	KindUUID

	// KindDynamic is used when the driver reports no type name at all
	// (SQLite expression columns). The driver's Go value picks the variant.
	KindDynamic
)

// KindOf maps a driver-reported column type name to a ColumnKind.
// Names are matched case-insensitively and any "(n)" suffix is ignored,
// so Postgres (INT8, TIMESTAMPTZ) and SQLite (INTEGER, DATETIME)
// spellings both resolve.
func KindOf(typeName string) ColumnKind {
	name := strings.ToUpper(strings.TrimSpace(typeName))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}

	switch name {
	case "":
		return KindDynamic
	case "BOOL", "BOOLEAN":
		return KindBool
	case "INT2", "INT4", "INT8", "SMALLINT", "INT", "INTEGER", "BIGINT":
		return KindInt
	case "FLOAT4", "FLOAT8", "REAL", "DOUBLE", "DOUBLE PRECISION", "FLOAT":
		return KindFloat
	case "TIMESTAMP", "DATETIME", "TIMESTAMP WITHOUT TIME ZONE":
		return KindDateTime
	case "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return KindDateTimeTz
	case "UUID":
		return KindUUID
	default:
		return KindString
	}
}

// ColumnDecoder scans one result column and converts it to a Value.
type ColumnDecoder struct {
	Name string
	Kind ColumnKind
	dest any
}

// NewColumnDecoder creates a decoder for a column with the given
// driver-reported type name.
func NewColumnDecoder(name, typeName string) *ColumnDecoder {
	d := &ColumnDecoder{Name: name, Kind: KindOf(typeName)}
	switch d.Kind {
	case KindBool:
		d.dest = new(sql.NullBool)
	case KindInt:
		d.dest = new(sql.NullInt64)
	case KindFloat:
		d.dest = new(sql.NullFloat64)
	case KindDateTime, KindDateTimeTz:
		d.dest = new(sql.NullTime)
	case KindUUID:
		d.dest = new(uuid.NullUUID)
	case KindDynamic:
		d.dest = new(any)
	default:
		d.dest = new(sql.NullString)
	}
	return d
}

// Dest returns the pointer to pass to Rows.Scan.
func (d *ColumnDecoder) Dest() any {
	return d.dest
}

// Value returns the last scanned column as a Value, or nil for SQL NULL.
func (d *ColumnDecoder) Value() (Value, error) {
	switch dest := d.dest.(type) {
	case *sql.NullBool:
		if !dest.Valid {
			return nil, nil
		}
		return Bool(dest.Bool), nil
	case *sql.NullInt64:
		if !dest.Valid {
			return nil, nil
		}
		return Int(dest.Int64), nil
	case *sql.NullFloat64:
		if !dest.Valid {
			return nil, nil
		}
		return Float(dest.Float64), nil
	case *sql.NullTime:
		if !dest.Valid {
			return nil, nil
		}
		if d.Kind == KindDateTime {
			return NewDateTime(dest.Time), nil
		}
		return DateTimeTz(dest.Time), nil
	case *uuid.NullUUID:
		if !dest.Valid {
			return nil, nil
		}
		return UUID(dest.UUID), nil
	case *sql.NullString:
		if !dest.Valid {
			return nil, nil
		}
		return String(dest.String), nil
	case *any:
		return dynamicValue(d.Name, *dest)
	default:
		return nil, fmt.Errorf("column %q: unexpected scan destination %T", d.Name, d.dest)
	}
}

// dynamicValue converts a raw driver value for columns without a type name.
func dynamicValue(name string, raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []byte:
		return String(v), nil
	case string:
		return String(v), nil
	default:
		val, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		return val, nil
	}
}

// RowScanner is the part of *sql.Rows a RowDecoder needs.
type RowScanner interface {
	Scan(dest ...any) error
}

// RowDecoder turns result rows into OptionalJSONMaps. Build one per
// result set and call Decode for each row.
type RowDecoder struct {
	columns []*ColumnDecoder
	dests   []any
}

// ColumnInfo is the name and driver type name of a result column.
type ColumnInfo struct {
	Name     string
	TypeName string
}

// NewRowDecoder creates a decoder for the given result columns.
func NewRowDecoder(cols []ColumnInfo) *RowDecoder {
	rd := &RowDecoder{
		columns: make([]*ColumnDecoder, len(cols)),
		dests:   make([]any, len(cols)),
	}
	for i, c := range cols {
		rd.columns[i] = NewColumnDecoder(c.Name, c.TypeName)
		rd.dests[i] = rd.columns[i].Dest()
	}
	return rd
}

// ColumnsOf reads column names and type names from sql.ColumnTypes.
func ColumnsOf(types []*sql.ColumnType) []ColumnInfo {
	cols := make([]ColumnInfo, len(types))
	for i, ct := range types {
		cols[i] = ColumnInfo{Name: ct.Name(), TypeName: ct.DatabaseTypeName()}
	}
	return cols
}

// Decode scans the current row. Every column gets an entry; NULL columns
// map to nil.
func (rd *RowDecoder) Decode(rows RowScanner) (OptionalJSONMap, error) {
	if err := rows.Scan(rd.dests...); err != nil {
		return nil, WrapError(ErrCodeDatabase, err, "scan row")
	}

	row := make(OptionalJSONMap, len(rd.columns))
	for _, col := range rd.columns {
		val, err := col.Value()
		if err != nil {
			return nil, WrapError(ErrCodeTypeCoercion, err, "decode column %q", col.Name)
		}
		row[col.Name] = val
	}
	return row, nil
}
