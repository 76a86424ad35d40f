package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/restql/internal/ir"
	"github.com/roach88/restql/internal/queryir"
)

// Query is compiled SQL text with its positional parameters.
// Placeholders are numbered $1..$n in Params order.
type Query struct {
	SQL    string
	Params []ir.Value
}

// Args returns Params as driver arguments. Every ir.Value is a
// driver.Valuer, so the slice can be passed straight to Exec or Query.
func (q Query) Args() []any {
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		args[i] = p
	}
	return args
}

// SQLCompiler compiles descriptors and record operations to SQL.
//
// Table and column names are spliced into the SQL text as given. They are
// trusted input; only values are parameterized.
type SQLCompiler struct {
	strictNested bool
}

// CompilerOption configures an SQLCompiler.
type CompilerOption func(*SQLCompiler)

// WithStrictNested makes nested selections a compile error instead of
// namespaced columns over an un-joined relation.
func WithStrictNested() CompilerOption {
	return func(c *SQLCompiler) {
		c.strictNested = true
	}
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler(opts ...CompilerOption) *SQLCompiler {
	c := &SQLCompiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileSelect compiles a list request against table:
//
//	SELECT <fields> FROM <table>[ ORDER BY ...][ LIMIT n][ OFFSET m]
//
// No ORDER BY is added unless the descriptor asks for one. LIMIT and
// OFFSET are literal integers, so the result has no parameters.
func (c *SQLCompiler) CompileSelect(table string, d queryir.Descriptor) (Query, error) {
	if err := checkIdent("table", table); err != nil {
		return Query{}, err
	}

	fields, err := c.compileFields(d.Select)
	if err != nil {
		return Query{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(fields)
	b.WriteString(" FROM ")
	b.WriteString(table)

	if len(d.Order) > 0 {
		terms := make([]string, len(d.Order))
		for i, item := range d.Order {
			if err := checkIdent("order column", item.Column); err != nil {
				return Query{}, err
			}
			terms[i] = item.String()
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}
	if d.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatUint(*d.Limit, 10))
	}
	if d.Offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.FormatUint(*d.Offset, 10))
	}

	return Query{SQL: b.String()}, nil
}

// CompileGet compiles a fetch by primary key:
//
//	SELECT * FROM <table> WHERE id = $1
func (c *SQLCompiler) CompileGet(table string, id ir.Value) (Query, error) {
	if err := checkIdent("table", table); err != nil {
		return Query{}, err
	}
	if id == nil {
		return Query{}, ir.NewError(ir.ErrCodeSQLCompile, "get from %s: id is required", table)
	}
	return Query{
		SQL:    "SELECT * FROM " + table + " WHERE id = $1",
		Params: []ir.Value{id},
	}, nil
}

// CompileInsert compiles a single-row insert returning the stored row:
//
//	INSERT INTO <table> (c1, c2) VALUES ($1, $2) RETURNING *
//
// Columns are sorted so placeholder numbering does not depend on map
// iteration order. An empty map inserts DEFAULT VALUES.
func (c *SQLCompiler) CompileInsert(table string, data ir.JSONMap) (Query, error) {
	if err := checkIdent("table", table); err != nil {
		return Query{}, err
	}

	if len(data) == 0 {
		return Query{SQL: "INSERT INTO " + table + " DEFAULT VALUES RETURNING *"}, nil
	}

	columns := data.SortedKeys()
	placeholders := make([]string, len(columns))
	params := make([]ir.Value, len(columns))
	for i, col := range columns {
		if err := checkIdent("column", col); err != nil {
			return Query{}, err
		}
		placeholders[i] = "$" + strconv.Itoa(i+1)
		params[i] = data[col]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))

	return Query{SQL: sql, Params: params}, nil
}

// compileFields renders the select list. nil or empty selects "*".
func (c *SQLCompiler) compileFields(sel *queryir.Select) (string, error) {
	if sel == nil || len(sel.Fields) == 0 {
		return "*", nil
	}

	var parts []string
	for _, field := range sel.Fields {
		switch f := field.(type) {
		case queryir.Column:
			part, err := compileColumn(f)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		case queryir.Nested:
			nested, err := c.compileNested(f, nil)
			if err != nil {
				return "", err
			}
			parts = append(parts, nested...)
		default:
			return "", ir.NewError(ir.ErrCodeSQLCompile, "unsupported field type: %T", field)
		}
	}
	return strings.Join(parts, ", "), nil
}

// compileColumn renders "column[ as alias]".
func compileColumn(col queryir.Column) (string, error) {
	if err := checkIdent("column", col.Name); err != nil {
		return "", err
	}
	if col.Alias == "" || col.Alias == col.Name {
		return col.Name, nil
	}
	return col.Name + " as " + col.Alias, nil
}

// compileNested renders the inner columns of a nested group, each
// qualified by the group's relation and aliased with its dotted output
// key. ns holds the namespaces of enclosing groups.
func (c *SQLCompiler) compileNested(n queryir.Nested, ns []string) ([]string, error) {
	if c.strictNested {
		return nil, ir.NewError(ir.ErrCodeSQLCompile, "nested selection %q requires a join, which is not supported", n.Name)
	}
	if err := checkIdent("relation", n.Name); err != nil {
		return nil, err
	}
	if len(n.Select.Fields) == 0 {
		return nil, ir.NewError(ir.ErrCodeSQLCompile, "nested selection %q selects no columns", n.Name)
	}

	path := append(append([]string{}, ns...), n.Namespace())

	var parts []string
	for _, field := range n.Select.Fields {
		switch f := field.(type) {
		case queryir.Column:
			if err := checkIdent("column", f.Name); err != nil {
				return nil, err
			}
			if f.Name == "*" {
				parts = append(parts, n.Name+".*")
				continue
			}
			key := strings.Join(append(path, f.Key()), ".")
			parts = append(parts, fmt.Sprintf("%s.%s as %q", n.Name, f.Name, key))
		case queryir.Nested:
			inner, err := c.compileNested(f, path)
			if err != nil {
				return nil, err
			}
			parts = append(parts, inner...)
		default:
			return nil, ir.NewError(ir.ErrCodeSQLCompile, "unsupported field type: %T", field)
		}
	}
	return parts, nil
}

// checkIdent rejects empty identifiers. Identifiers are otherwise trusted.
func checkIdent(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return ir.NewError(ir.ErrCodeSQLCompile, "empty %s name", kind)
	}
	return nil
}
