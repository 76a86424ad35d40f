package ir

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Value is a sealed interface over the scalar types restql moves between
// JSON, SQL parameters, SQL result columns, and scripts.
//
// Only Bool, UUID, Int, Float, DateTimeTz, DateTime, and String implement
// it. That list is also the decode precedence: a string that parses as a
// UUID is always a UUID, a naive timestamp is always a DateTime, and so on.
//
// SQL NULL is not a Value. Maps that can hold NULL use a nil entry
// (see OptionalJSONMap).
type Value interface {
	isValue() // Sealed
}

// Bool is a boolean value.
type Bool bool

func (Bool) isValue() {}

// UUID is a 128-bit identifier, written as the hyphenated lowercase form.
type UUID uuid.UUID

func (UUID) isValue() {}

// Int is a signed 64-bit integer.
type Int int64

func (Int) isValue() {}

// Float is a 64-bit IEEE float.
type Float float64

func (Float) isValue() {}

// DateTimeTz is a timestamp carrying a UTC offset.
type DateTimeTz time.Time

func (DateTimeTz) isValue() {}

// DateTime is a wall-clock timestamp without an offset.
// The wrapped time is always in UTC; only its fields are meaningful.
type DateTime time.Time

func (DateTime) isValue() {}

// String is free text that matched no other variant.
type String string

func (String) isValue() {}

// Layouts used for the textual forms of the two timestamp variants.
const (
	// DateTimeLayout parses naive timestamps. Fractional seconds are
	// accepted when parsing even though the layout does not name them.
	DateTimeLayout = "2006-01-02T15:04:05"

	// dateTimeFormat writes naive timestamps, trimming zero fractions.
	dateTimeFormat = "2006-01-02T15:04:05.999999999"
)

// NewDateTime builds a naive timestamp from the wall-clock fields of t.
func NewDateTime(t time.Time) DateTime {
	return DateTime(time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC))
}

// ParseString infers the most specific Value for a piece of text.
//
// One layer of surrounding double quotes is stripped first, then the
// candidates are tried in order: UUID, naive timestamp, RFC 3339
// timestamp with offset. Anything else is a String. ParseString never
// fails.
func ParseString(s string) Value {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if u, err := uuid.Parse(s); err == nil {
		return UUID(u)
	}
	if t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC); err == nil {
		return DateTime(t)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateTimeTz(t)
	}
	return String(s)
}

// String returns the hyphenated form.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// String returns the naive ISO 8601 form, e.g. 2020-01-01T12:00:00.
func (d DateTime) String() string {
	return time.Time(d).Format(dateTimeFormat)
}

// String returns the RFC 3339 form with offset.
func (d DateTimeTz) String() string {
	return time.Time(d).Format(time.RFC3339Nano)
}

// Text renders v the way it appears inside a JSON string or on a terminal.
// A nil Value renders as "null".
func Text(v Value) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case UUID:
		return val.String()
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return formatFloat(float64(val))
	case DateTimeTz:
		return val.String()
	case DateTime:
		return val.String()
	case String:
		return string(val)
	default:
		return ""
	}
}

// formatFloat writes f so that it reads back as a Float: integral values
// keep a trailing ".0".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Equal reports whether two values are the same variant holding the same
// data. Timestamps compare as instants. Two nil values are equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case DateTimeTz:
		bv, ok := b.(DateTimeTz)
		return ok && time.Time(av).Equal(time.Time(bv))
	case DateTime:
		bv, ok := b.(DateTime)
		return ok && time.Time(av).Equal(time.Time(bv))
	default:
		return a == b
	}
}
