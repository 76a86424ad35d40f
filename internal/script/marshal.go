package script

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/restql/internal/ir"
)

// maxDepth bounds table nesting in both directions; it also stops
// self-referencing tables.
const maxDepth = 64

type decodeMode int

const (
	// strict rejects values JSON cannot represent.
	strict decodeMode = iota
	// lenient maps functions, threads and foreign userdata to nil and
	// error userdata to its message. Only the script's return value is
	// decoded this way.
	lenient
)

// toLua converts a JSON-compatible Go value into a Lua value. nil becomes
// the null sentinel so it survives inside tables.
func (s *Sandbox) toLua(v any, depth int) (lua.LValue, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("value nested deeper than %d levels", maxDepth)
	}

	switch val := v.(type) {
	case nil:
		return s.null, nil
	case bool:
		return lua.LBool(val), nil
	case string:
		return lua.LString(val), nil
	case int:
		return lua.LNumber(val), nil
	case int64:
		return lua.LNumber(val), nil
	case float64:
		return lua.LNumber(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", val, err)
		}
		return lua.LNumber(f), nil
	case ir.Value:
		return valueToLua(val), nil
	case ir.OptionalJSONMap:
		return s.rowToLua(val), nil
	case ir.JSONMap:
		return s.rowToLua(ir.OptionalJSONMap(val)), nil
	case []any:
		tb := s.L.CreateTable(len(val), 0)
		for _, item := range val {
			lv, err := s.toLua(item, depth+1)
			if err != nil {
				return nil, err
			}
			tb.Append(lv)
		}
		return tb, nil
	case map[string]any:
		tb := s.L.CreateTable(0, len(val))
		for k, item := range val {
			lv, err := s.toLua(item, depth+1)
			if err != nil {
				return nil, err
			}
			tb.RawSetString(k, lv)
		}
		return tb, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

// rowToLua converts a decoded row. NULL columns become the null sentinel.
func (s *Sandbox) rowToLua(row ir.OptionalJSONMap) *lua.LTable {
	tb := s.L.CreateTable(0, len(row))
	for _, k := range row.SortedKeys() {
		if row[k] == nil {
			tb.RawSetString(k, s.null)
			continue
		}
		tb.RawSetString(k, valueToLua(row[k]))
	}
	return tb
}

// valueToLua maps scalars natively and renders UUIDs and timestamps as
// the same strings used in JSON.
func valueToLua(v ir.Value) lua.LValue {
	switch val := v.(type) {
	case ir.Bool:
		return lua.LBool(val)
	case ir.Int:
		return lua.LNumber(val)
	case ir.Float:
		return lua.LNumber(val)
	case ir.String:
		return lua.LString(val)
	default:
		return lua.LString(ir.Text(v))
	}
}

// fromLua converts a Lua value to a JSON-compatible Go value: nil, bool,
// int64, float64, string, []any or map[string]any.
//
// Integral numbers become int64. A table whose keys are exactly 1..n
// becomes a slice; any other non-empty table becomes a map. An empty table
// becomes an empty map.
func (s *Sandbox) fromLua(lv lua.LValue, mode decodeMode, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("table nested deeper than %d levels", maxDepth)
	}

	switch val := lv.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(val), nil
	case lua.LString:
		return string(val), nil
	case lua.LNumber:
		return numberFromLua(val)
	case *lua.LTable:
		return s.tableFromLua(val, mode, depth)
	case *lua.LUserData:
		if val == s.null {
			return nil, nil
		}
		if mode == lenient {
			if err, ok := val.Value.(error); ok {
				return err.Error(), nil
			}
			return nil, nil
		}
		return nil, fmt.Errorf("cannot convert userdata")
	default:
		if mode == lenient {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot convert %s", lv.Type())
	}
}

func numberFromLua(n lua.LNumber) (any, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), nil
	}
	return f, nil
}

func (s *Sandbox) tableFromLua(tb *lua.LTable, mode decodeMode, depth int) (any, error) {
	type entry struct {
		key   lua.LValue
		value lua.LValue
	}
	var entries []entry
	tb.ForEach(func(k, v lua.LValue) {
		entries = append(entries, entry{k, v})
	})

	if n := tb.MaxN(); n > 0 && n == len(entries) {
		out := make([]any, n)
		for i := 1; i <= n; i++ {
			item, err := s.fromLua(tb.RawGetInt(i), mode, depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i-1] = item
		}
		return out, nil
	}

	out := make(map[string]any, len(entries))
	for _, e := range entries {
		key, err := tableKey(e.key, mode)
		if err != nil {
			return nil, err
		}
		item, err := s.fromLua(e.value, mode, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = item
	}
	return out, nil
}

func tableKey(k lua.LValue, mode decodeMode) (string, error) {
	switch key := k.(type) {
	case lua.LString:
		return string(key), nil
	case lua.LNumber:
		if mode == lenient {
			if f := float64(key); f == math.Trunc(f) {
				return strconv.FormatInt(int64(f), 10), nil
			}
			return key.String(), nil
		}
	}
	return "", fmt.Errorf("unsupported table key of type %s", k.Type())
}

// toJSONMap converts a script table into insert data. Every value must be
// a scalar; null and nested tables are rejected.
func (s *Sandbox) toJSONMap(tb *lua.LTable) (ir.JSONMap, error) {
	decoded, err := s.fromLua(tb, strict, 0)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeTypeCoercion, err, "create data")
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, ir.NewError(ir.ErrCodeUnsupported, "batch insert is not supported; pass a single table of columns")
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := make(ir.JSONMap, len(obj))
	for _, k := range keys {
		val, err := ir.FromAny(obj[k])
		if err != nil {
			return nil, ir.WrapError(ir.ErrCodeTypeCoercion, err, "column %q", k)
		}
		data[k] = val
	}
	return data, nil
}
