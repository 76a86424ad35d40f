package ir

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// msgpack encoding mirrors JSON: scalars use native msgpack types, UUIDs
// and timestamps travel as the same strings they use in JSON, and
// decoding applies the same precedence rules as JSON decoding.

var (
	_ msgpack.CustomEncoder = Bool(false)
	_ msgpack.CustomEncoder = UUID{}
	_ msgpack.CustomEncoder = Int(0)
	_ msgpack.CustomEncoder = Float(0)
	_ msgpack.CustomEncoder = DateTimeTz{}
	_ msgpack.CustomEncoder = DateTime{}
	_ msgpack.CustomEncoder = String("")
	_ msgpack.CustomEncoder = JSONMap(nil)
	_ msgpack.CustomEncoder = OptionalJSONMap(nil)
	_ msgpack.CustomDecoder = (*JSONMap)(nil)
	_ msgpack.CustomDecoder = (*OptionalJSONMap)(nil)
)

func (b Bool) EncodeMsgpack(e *msgpack.Encoder) error { return e.EncodeBool(bool(b)) }

func (u UUID) EncodeMsgpack(e *msgpack.Encoder) error { return e.EncodeString(u.String()) }

func (i Int) EncodeMsgpack(e *msgpack.Encoder) error { return e.EncodeInt(int64(i)) }

func (f Float) EncodeMsgpack(e *msgpack.Encoder) error { return e.EncodeFloat64(float64(f)) }

func (d DateTimeTz) EncodeMsgpack(e *msgpack.Encoder) error { return e.EncodeString(d.String()) }

func (d DateTime) EncodeMsgpack(e *msgpack.Encoder) error { return e.EncodeString(d.String()) }

func (s String) EncodeMsgpack(e *msgpack.Encoder) error { return e.EncodeString(string(s)) }

// EncodeMsgpack writes the map with sorted keys.
func (m JSONMap) EncodeMsgpack(e *msgpack.Encoder) error {
	return encodeMsgpackMap(e, m == nil, len(m), m.SortedKeys(), func(k string) Value { return m[k] })
}

// EncodeMsgpack writes the map with sorted keys. A nil map is msgpack nil.
func (m OptionalJSONMap) EncodeMsgpack(e *msgpack.Encoder) error {
	return encodeMsgpackMap(e, m == nil, len(m), m.SortedKeys(), func(k string) Value { return m[k] })
}

func encodeMsgpackMap(e *msgpack.Encoder, isNil bool, n int, keys []string, get func(string) Value) error {
	if isNil {
		return e.EncodeNil()
	}
	if err := e.EncodeMapLen(n); err != nil {
		return err
	}
	for _, k := range keys {
		if err := e.EncodeString(k); err != nil {
			return err
		}
		if err := EncodeMsgpackValue(e, get(k)); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	return nil
}

// EncodeMsgpackValue writes a single Value; nil is msgpack nil.
func EncodeMsgpackValue(e *msgpack.Encoder, v Value) error {
	if v == nil {
		return e.EncodeNil()
	}
	enc, ok := v.(msgpack.CustomEncoder)
	if !ok {
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return enc.EncodeMsgpack(e)
}

// DecodeMsgpack implements msgpack.CustomDecoder. nil entries are rejected.
func (m *JSONMap) DecodeMsgpack(d *msgpack.Decoder) error {
	raw, err := decodeMsgpackMap(d)
	if err != nil {
		return err
	}
	if raw == nil {
		return NewError(ErrCodeTypeCoercion, "expected a map, got nil")
	}

	out := make(JSONMap, len(raw))
	for k, v := range raw {
		val, err := FromAny(v)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = val
	}
	*m = out
	return nil
}

// DecodeMsgpack implements msgpack.CustomDecoder. A nil document yields
// a nil map; nil entries are SQL NULL.
func (m *OptionalJSONMap) DecodeMsgpack(d *msgpack.Decoder) error {
	raw, err := decodeMsgpackMap(d)
	if err != nil {
		return err
	}
	if raw == nil {
		*m = nil
		return nil
	}

	out := make(OptionalJSONMap, len(raw))
	for k, v := range raw {
		if v == nil {
			out[k] = nil
			continue
		}
		val, err := FromAny(v)
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = val
	}
	*m = out
	return nil
}

// decodeMsgpackMap reads a string-keyed map of loosely decoded scalars.
// It returns nil for a msgpack nil.
func decodeMsgpackMap(d *msgpack.Decoder) (map[string]any, error) {
	n, err := d.DecodeMapLen()
	if err != nil {
		return nil, WrapError(ErrCodeParse, err, "invalid msgpack map")
	}
	if n == -1 {
		return nil, nil
	}

	out := make(map[string]any, n)
	for i := 0; i < n; i++ {
		k, err := d.DecodeString()
		if err != nil {
			return nil, WrapError(ErrCodeParse, err, "invalid msgpack map key")
		}
		v, err := d.DecodeInterfaceLoose()
		if err != nil {
			return nil, WrapError(ErrCodeParse, err, "invalid msgpack value for key %q", k)
		}
		out[k] = v
	}
	return out, nil
}
