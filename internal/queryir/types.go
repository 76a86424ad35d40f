package queryir

import "strings"

// Descriptor is the structured shape of a list request: which columns to
// return, how to order them, and how many to skip and take.
//
// The zero Descriptor selects every column of every row:
//
//	SELECT * FROM <table>
//
// Field and order sequences are kept exactly as given; the SQL backend
// never re-sorts them.
type Descriptor struct {
	// Select lists the requested columns. nil means all columns (*).
	Select *Select

	// Order lists ORDER BY items in priority order. Empty means no ORDER BY,
	// so row order is whatever the database returns.
	Order []OrderItem

	// Limit caps the number of rows. nil means no LIMIT.
	Limit *uint64

	// Offset skips leading rows. nil means no OFFSET.
	Offset *uint64
}

// WithLimit returns a copy of d with Limit set to n.
func (d Descriptor) WithLimit(n uint64) Descriptor {
	d.Limit = &n
	return d
}

// WithOffset returns a copy of d with Offset set to n.
func (d Descriptor) WithOffset(n uint64) Descriptor {
	d.Offset = &n
	return d
}

// Select is an ordered list of requested fields.
type Select struct {
	Fields []Field
}

// NewSelect creates a Select from fields in the order given.
func NewSelect(fields ...Field) *Select {
	return &Select{Fields: fields}
}

// Field is one entry of a Select.
//
// This is a sealed interface - only Column and Nested implement it.
//
// Field types:
//   - Column: a plain column, optionally renamed in the output
//   - Nested: a related-table expansion with its own inner selection
type Field interface {
	fieldNode() // Marker method - seals interface to this package
}

// Column selects a single column.
//
//	Column{Name: "artist", Alias: "my_artist"}  =>  artist as my_artist
type Column struct {
	Name  string // Source column name
	Alias string // Output key; empty keeps Name
}

func (Column) fieldNode() {}

// Key returns the column's output key.
func (c Column) Key() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// Nested selects columns of a related relation.
//
// Inner columns are namespaced in the output with a dotted prefix so leaf
// names repeated across groups cannot collide:
//
//	Nested{Name: "artist", Select: Select{Fields: []Field{Column{Name: "name"}}}}
//	  => artist.name as "artist.name"
//
// No JOIN is derived for the relation. The generated SQL references it
// by name, so it only runs where the relation is already in scope.
type Nested struct {
	Name   string // Related relation name
	Alias  string // Output namespace; empty keeps Name
	Select Select // Inner selection
}

func (Nested) fieldNode() {}

// Namespace returns the output key prefix for the nested group.
func (n Nested) Namespace() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Direction is an ORDER BY direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns the SQL keyword.
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Nulls controls where NULLs sort. NullsDefault leaves it to the database.
type Nulls int

const (
	NullsDefault Nulls = iota
	NullsFirst
	NullsLast
)

// String returns the SQL clause, or "" for NullsDefault.
func (n Nulls) String() string {
	switch n {
	case NullsFirst:
		return "NULLS FIRST"
	case NullsLast:
		return "NULLS LAST"
	default:
		return ""
	}
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Column    string
	Direction Direction
	Nulls     Nulls
}

// String renders the item as it appears in SQL, e.g. "width ASC NULLS FIRST".
func (o OrderItem) String() string {
	parts := []string{o.Column, o.Direction.String()}
	if nulls := o.Nulls.String(); nulls != "" {
		parts = append(parts, nulls)
	}
	return strings.Join(parts, " ")
}
