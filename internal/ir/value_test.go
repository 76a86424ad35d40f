package ir

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Compile-time check: every variant satisfies Value
	var _ Value = Bool(true)
	var _ Value = UUID(uuid.Nil)
	var _ Value = Int(1)
	var _ Value = Float(1.5)
	var _ Value = DateTimeTz(time.Time{})
	var _ Value = DateTime(time.Time{})
	var _ Value = String("s")
}

func TestParseString(t *testing.T) {
	id := uuid.MustParse("67e55044-10b1-426f-9247-bb680e5fe0c8")

	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"uuid", "67e55044-10b1-426f-9247-bb680e5fe0c8", UUID(id)},
		{"quoted uuid", `"67e55044-10b1-426f-9247-bb680e5fe0c8"`, UUID(id)},
		{"naive datetime", "2020-01-01T12:00:00", DateTime(time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC))},
		{"naive datetime with fraction", "2020-01-01T12:00:00.25", DateTime(time.Date(2020, 1, 1, 12, 0, 0, 250_000_000, time.UTC))},
		{"zoned datetime", "2020-01-01T12:00:00Z", DateTimeTz(time.Unix(1577880000, 0).UTC())},
		{"zoned datetime with offset", "2020-01-01T14:00:00+02:00", DateTimeTz(time.Unix(1577880000, 0).UTC())},
		{"plain text", "testing", String("testing")},
		{"numeric text stays string", "42", String("42")},
		{"empty", "", String("")},
		{"lone quote", `"`, String(`"`)},
		{"quoted text", `"hello"`, String("hello")},
		{"only one quote layer stripped", `""x""`, String(`"x"`)},
		{"date only", "2020-01-01", String("2020-01-01")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseString(tt.input)
			assert.IsType(t, tt.want, got)
			assert.True(t, Equal(tt.want, got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestParseStringPrecedence(t *testing.T) {
	// A valid UUID must never fall through to String.
	got := ParseString("00000000-0000-0000-0000-000000000000")
	assert.Equal(t, UUID(uuid.Nil), got)

	// Zoned input must not be taken as naive.
	got = ParseString("2020-01-01T12:00:00+00:00")
	assert.IsType(t, DateTimeTz{}, got)
}

func TestText(t *testing.T) {
	assert.Equal(t, "true", Text(Bool(true)))
	assert.Equal(t, "-152", Text(Int(-152)))
	assert.Equal(t, "512.255", Text(Float(512.255)))
	assert.Equal(t, "2.0", Text(Float(2)))
	assert.Equal(t, "2020-01-01T12:00:00", Text(DateTime(time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC))))
	assert.Equal(t, "2020-01-01T12:00:00.5", Text(DateTime(time.Date(2020, 1, 1, 12, 0, 0, 500_000_000, time.UTC))))
	assert.Equal(t, "2020-01-01T12:00:00Z", Text(DateTimeTz(time.Unix(1577880000, 0).UTC())))
	assert.Equal(t, "testing", Text(String("testing")))
	assert.Equal(t, "null", Text(nil))
}

func TestNewDateTimeKeepsWallClock(t *testing.T) {
	loc := time.FixedZone("plus5", 5*3600)
	dt := NewDateTime(time.Date(2021, 6, 1, 8, 30, 0, 0, loc))

	assert.Equal(t, "2021-06-01T08:30:00", dt.String())
	assert.Equal(t, time.UTC, time.Time(dt).Location())
}

func TestEqual(t *testing.T) {
	instant := time.Unix(1577880000, 0)

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Int(0)))
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Float(1)))
	assert.True(t, Equal(DateTimeTz(instant.UTC()), DateTimeTz(instant.In(time.FixedZone("x", 3600)))))
	assert.False(t, Equal(DateTimeTz(instant), DateTime(instant)))
}

func TestParseStringRoundTripsThroughText(t *testing.T) {
	inputs := []string{
		"67e55044-10b1-426f-9247-bb680e5fe0c8",
		"2020-01-01T12:00:00",
		"2020-01-01T12:00:00.123456",
		"2020-01-01T12:00:00Z",
		"2020-01-01T12:00:00.5+01:00",
		"plain",
	}

	for _, in := range inputs {
		v := ParseString(in)
		again := ParseString(Text(v))
		require.True(t, Equal(v, again), "input %q: %v != %v", in, v, again)
	}
}
