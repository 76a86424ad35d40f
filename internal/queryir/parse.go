package queryir

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/restql/internal/ir"
)

// Parse builds a Descriptor from a PostgREST-style query string:
//
//	select=id,my_artist:artist,album(title,year)&order=title.desc,width.nullsfirst&limit=10&offset=20
//
// Recognized parameters are select, order, limit, and offset, each at
// most once. Anything else is a parse error: row filters are not
// part of a Descriptor.
func Parse(rawQuery string) (Descriptor, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Descriptor{}, ir.WrapError(ir.ErrCodeParse, err, "invalid query string")
	}
	return ParseValues(values)
}

// ParseValues builds a Descriptor from already-split query parameters.
func ParseValues(values url.Values) (Descriptor, error) {
	var d Descriptor

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		vals := values[key]
		if len(vals) != 1 {
			return Descriptor{}, ir.NewError(ir.ErrCodeParse, "parameter %q given %d times", key, len(vals))
		}
		raw := vals[0]

		switch key {
		case "select":
			sel, err := parseSelect(raw)
			if err != nil {
				return Descriptor{}, err
			}
			d.Select = sel
		case "order":
			order, err := parseOrder(raw)
			if err != nil {
				return Descriptor{}, err
			}
			d.Order = order
		case "limit":
			n, err := parseCount(key, raw)
			if err != nil {
				return Descriptor{}, err
			}
			d.Limit = &n
		case "offset":
			n, err := parseCount(key, raw)
			if err != nil {
				return Descriptor{}, err
			}
			d.Offset = &n
		default:
			return Descriptor{}, ir.NewError(ir.ErrCodeParse, "unsupported query parameter %q", key)
		}
	}

	return d, nil
}

// parseSelect parses the select parameter. A bare "*" selects all columns.
func parseSelect(raw string) (*Select, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, ir.NewError(ir.ErrCodeParse, "select: empty field list")
	}
	if s == "*" {
		return nil, nil
	}

	fields, err := parseFieldList(s)
	if err != nil {
		return nil, err
	}
	return &Select{Fields: fields}, nil
}

// parseFieldList parses a comma-separated list of fields, where commas
// inside parentheses belong to nested selections.
func parseFieldList(s string) ([]Field, error) {
	items, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(items))
	for _, item := range items {
		f, err := parseField(item)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// splitTopLevel splits s on commas at parenthesis depth zero.
func splitTopLevel(s string) ([]string, error) {
	var items []string
	depth, start := 0, 0

	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, ir.NewError(ir.ErrCodeParse, "select: unbalanced ')' at offset %d", i)
			}
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, ir.NewError(ir.ErrCodeParse, "select: unbalanced '(' in %q", s)
	}
	return append(items, s[start:]), nil
}

// parseField parses one "[alias:]name" or "[alias:]name(inner,...)" item.
func parseField(item string) (Field, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, ir.NewError(ir.ErrCodeParse, "select: empty field")
	}

	head, inner, nested := item, "", false
	if open := strings.IndexByte(item, '('); open >= 0 {
		if !strings.HasSuffix(item, ")") {
			return nil, ir.NewError(ir.ErrCodeParse, "select: unexpected text after ')' in %q", item)
		}
		head, inner, nested = item[:open], item[open+1:len(item)-1], true
	}

	alias, name, err := splitAlias(head)
	if err != nil {
		return nil, err
	}

	if !nested {
		return Column{Name: name, Alias: alias}, nil
	}

	if strings.TrimSpace(inner) == "" {
		return nil, ir.NewError(ir.ErrCodeParse, "select: nested %q selects no columns", name)
	}
	fields, err := parseFieldList(inner)
	if err != nil {
		return nil, err
	}
	return Nested{Name: name, Alias: alias, Select: Select{Fields: fields}}, nil
}

// splitAlias splits "alias:name" into its parts. Casts ("::") are rejected.
func splitAlias(head string) (alias, name string, err error) {
	head = strings.TrimSpace(head)
	if strings.Contains(head, "::") {
		return "", "", ir.NewError(ir.ErrCodeParse, "select: casts are not supported in %q", head)
	}

	name = head
	if i := strings.IndexByte(head, ':'); i >= 0 {
		alias, name = strings.TrimSpace(head[:i]), strings.TrimSpace(head[i+1:])
		if alias == "" {
			return "", "", ir.NewError(ir.ErrCodeParse, "select: empty alias in %q", head)
		}
	}
	if name == "" {
		return "", "", ir.NewError(ir.ErrCodeParse, "select: empty column name in %q", head)
	}
	return alias, name, nil
}

// parseOrder parses "col[.asc|.desc][.nullsfirst|.nullslast],...".
func parseOrder(raw string) ([]OrderItem, error) {
	terms := strings.Split(raw, ",")
	order := make([]OrderItem, 0, len(terms))

	for _, term := range terms {
		parts := strings.Split(strings.TrimSpace(term), ".")
		if parts[0] == "" {
			return nil, ir.NewError(ir.ErrCodeParse, "order: empty column in %q", raw)
		}

		item := OrderItem{Column: parts[0]}
		var sawDir, sawNulls bool
		for _, mod := range parts[1:] {
			switch mod {
			case "asc", "desc":
				if sawDir {
					return nil, ir.NewError(ir.ErrCodeParse, "order: %q has more than one direction", term)
				}
				sawDir = true
				if mod == "desc" {
					item.Direction = Desc
				}
			case "nullsfirst", "nullslast":
				if sawNulls {
					return nil, ir.NewError(ir.ErrCodeParse, "order: %q has more than one nulls option", term)
				}
				sawNulls = true
				item.Nulls = NullsFirst
				if mod == "nullslast" {
					item.Nulls = NullsLast
				}
			default:
				return nil, ir.NewError(ir.ErrCodeParse, "order: unknown modifier %q in %q", mod, term)
			}
		}
		order = append(order, item)
	}
	return order, nil
}

func parseCount(key, raw string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, ir.WrapError(ir.ErrCodeParse, err, "%s: expected a non-negative integer, got %q", key, raw)
	}
	return n, nil
}
