// Package ir defines restql's typed value model and the codecs around it.
//
// Values arrive loosely typed (JSON bodies, URL path segments, script
// tables, result columns) and leave strongly typed (SQL parameters, JSON
// responses). Value is the closed set of scalars restql understands:
//
//	Bool, UUID, Int, Float, DateTimeTz, DateTime, String
//
// The order matters. ParseString tries UUID, then a naive timestamp, then
// an RFC 3339 timestamp, and falls back to String. JSON numbers keep their
// literal form: 5 is Int, 5.0 is Float.
//
// Codecs:
//   - JSON: MarshalJSON on every variant; UnmarshalValue, JSONMap,
//     OptionalJSONMap for decoding.
//   - msgpack: the same shapes through vmihailenco/msgpack.
//   - SQL parameters: every variant is a driver.Valuer.
//   - SQL columns: RowDecoder picks a variant from the column's
//     DatabaseTypeName.
//
// Errors are *Error values carrying an ErrorCode. ir imports nothing
// internal; every other package builds on it.
package ir
