package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult contains the single-table analysis of a descriptor.
//
// A descriptor is single-table when its compiled SQL references nothing
// but the target table. Nested selections name related relations without
// joining them, so they compile but only run where the relation is
// already in scope.
type ValidationResult struct {
	// SingleTable indicates the descriptor references only the target table.
	SingleTable bool

	// Warnings lists features that compile but may not behave as expected.
	// Empty when the descriptor is clean.
	Warnings []string
}

// Validate reports features of a descriptor that compile to SQL but are
// likely to surprise:
//  1. Nested selections (no JOIN is generated for the related relation)
//  2. Duplicate output keys (later columns overwrite earlier ones in a row)
//  3. "*" mixed with explicit columns
//  4. The same column ordered more than once
//
// Validate is a pure function with no side effects. Structural errors
// such as empty names are reported by the SQL compiler, not here.
func Validate(d Descriptor) ValidationResult {
	v := &validator{
		warnings: []string{},
		keys:     make(map[string]bool),
	}
	v.validateDescriptor(d)

	return ValidationResult{
		SingleTable: !v.nested,
		Warnings:    v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
	keys     map[string]bool
	nested   bool
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateDescriptor(d Descriptor) {
	if d.Select != nil {
		v.validateSelect(*d.Select, nil)
	}

	ordered := make(map[string]bool, len(d.Order))
	for _, item := range d.Order {
		if ordered[item.Column] {
			v.addWarning("column %q ordered more than once", item.Column)
		}
		ordered[item.Column] = true
	}
}

// validateSelect walks fields; path is the output namespace of the group.
func (v *validator) validateSelect(sel Select, path []string) {
	var star, explicit bool

	for _, field := range sel.Fields {
		switch f := field.(type) {
		case Column:
			if f.Name == "*" {
				star = true
				continue
			}
			explicit = true
			v.addKey(append(path, f.Key()))
		case Nested:
			explicit = true
			v.nested = true
			v.addWarning("nested selection %q is not joined; the query references relation %q directly", strings.Join(append(path, f.Namespace()), "."), f.Name)
			v.validateSelect(f.Select, append(path, f.Namespace()))
		default:
			v.addWarning("unknown field type %T", field)
		}
	}

	if star && explicit {
		v.addWarning("\"*\" mixed with explicit columns may produce duplicate output keys")
	}
}

func (v *validator) addKey(path []string) {
	key := strings.Join(path, ".")
	if v.keys[key] {
		v.addWarning("duplicate output key %q", key)
	}
	v.keys[key] = true
}
