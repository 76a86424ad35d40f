package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JSONMap maps column names to required values. It is the shape of an
// insert body: JSON null is rejected inside it.
type JSONMap map[string]Value

// OptionalJSONMap maps column names to values that may be SQL NULL (nil).
// Every column of a decoded row has an entry. A nil OptionalJSONMap
// means "no row" and encodes as JSON null.
type OptionalJSONMap map[string]Value

// SortedKeys returns the map's keys in lexicographic byte order.
func (m JSONMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SortedKeys returns the map's keys in lexicographic byte order.
func (m OptionalJSONMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MarshalJSON implements json.Marshaler.
func (b Bool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// MarshalJSON implements json.Marshaler.
func (u UUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// MarshalJSON implements json.Marshaler.
func (i Int) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(i))
}

// MarshalJSON implements json.Marshaler. Non-finite floats cannot be
// represented in JSON and are an error.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, NewError(ErrCodeTypeCoercion, "non-finite float %v has no JSON form", v)
	}
	return []byte(formatFloat(v)), nil
}

// MarshalJSON implements json.Marshaler.
func (d DateTimeTz) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalJSON implements json.Marshaler.
func (s String) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// MarshalValue marshals a Value to JSON bytes. A nil Value is null.
func MarshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalValue decodes a single JSON scalar into a Value.
//
// Numbers keep their written form: integral literals become Int (or an
// error outside the int64 range), literals with a fraction or exponent
// become Float. Strings go through ParseString. Arrays, objects, and null
// are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// UnmarshalJSON implements json.Unmarshaler for JSONMap.
func (m *JSONMap) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}

	out := make(JSONMap, len(obj))
	for k, raw := range obj {
		val, err := FromAny(raw)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = val
	}
	*m = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for OptionalJSONMap.
// JSON null as the whole document yields a nil map.
func (m *OptionalJSONMap) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*m = nil
		return nil
	}
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}

	out := make(OptionalJSONMap, len(obj))
	for k, raw := range obj {
		if raw == nil {
			out[k] = nil
			continue
		}
		val, err := FromAny(raw)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = val
	}
	*m = out
	return nil
}

// decodeJSON decodes one JSON document keeping numbers as json.Number.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, WrapError(ErrCodeParse, err, "invalid JSON")
	}
	if dec.More() {
		return nil, NewError(ErrCodeParse, "invalid JSON: trailing data after value")
	}
	return raw, nil
}

// decodeObject decodes a JSON object. Anything else is a type error.
func decodeObject(data []byte) (map[string]any, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		if _, isArray := raw.([]any); isArray {
			return nil, NewError(ErrCodeUnsupported, "expected a JSON object, got an array (batch insert is not supported)")
		}
		return nil, NewError(ErrCodeTypeCoercion, "expected a JSON object, got %s", jsonKind(raw))
	}
	return obj, nil
}

// FromAny converts a decoded Go value into a Value.
//
// It accepts the shapes produced by encoding/json (with UseNumber),
// msgpack's loose decoding, and script bridges: booleans, strings, Go
// integer and float kinds, json.Number, time.Time, uuid.UUID, and Values
// themselves. nil, slices, and maps are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, NewError(ErrCodeTypeCoercion, "null is not a value here")
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return ParseString(val), nil
	case json.Number:
		return numberValue(val)
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		return uintValue(uint64(val))
	case uint64:
		return uintValue(val)
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case time.Time:
		return DateTimeTz(val), nil
	case uuid.UUID:
		return UUID(val), nil
	default:
		return nil, NewError(ErrCodeTypeCoercion, "cannot use %s as a value", jsonKind(v))
	}
}

// numberValue applies the Int-or-Float rule to a JSON number literal.
func numberValue(n json.Number) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return nil, WrapError(ErrCodeTypeCoercion, err, "number %s is not a valid float", s)
		}
		return Float(f), nil
	}
	i, err := n.Int64()
	if err != nil {
		return nil, NewError(ErrCodeTypeCoercion, "number %s out of int64 range", s)
	}
	return Int(i), nil
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, NewError(ErrCodeTypeCoercion, "number %d out of int64 range", u)
	}
	return Int(int64(u)), nil
}

// jsonKind names the JSON shape of a decoded value for error messages.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, float64, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
