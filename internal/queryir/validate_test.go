package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CleanDescriptor(t *testing.T) {
	d := Descriptor{
		Select: NewSelect(Column{Name: "id"}, Column{Name: "artist", Alias: "my_artist"}),
		Order:  []OrderItem{{Column: "id"}},
	}

	result := Validate(d)

	assert.True(t, result.SingleTable)
	assert.Empty(t, result.Warnings)
}

func TestValidate_ZeroDescriptor(t *testing.T) {
	result := Validate(Descriptor{})

	assert.True(t, result.SingleTable)
	assert.Empty(t, result.Warnings)
}

func TestValidate_NestedIsNotSingleTable(t *testing.T) {
	d := Descriptor{
		Select: NewSelect(
			Column{Name: "id"},
			Nested{Name: "artist", Select: Select{Fields: []Field{Column{Name: "name"}}}},
		),
	}

	result := Validate(d)

	assert.False(t, result.SingleTable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "not joined")
	assert.Contains(t, result.Warnings[0], `"artist"`)
}

func TestValidate_DuplicateKeys(t *testing.T) {
	d := Descriptor{
		Select: NewSelect(
			Column{Name: "id"},
			Column{Name: "other_id", Alias: "id"},
		),
	}

	result := Validate(d)

	assert.True(t, result.SingleTable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], `duplicate output key "id"`)
}

func TestValidate_NestedKeysDoNotCollideWithTopLevel(t *testing.T) {
	d := Descriptor{
		Select: NewSelect(
			Column{Name: "name"},
			Nested{Name: "artist", Select: Select{Fields: []Field{Column{Name: "name"}}}},
			Nested{Name: "album", Select: Select{Fields: []Field{Column{Name: "name"}}}},
		),
	}

	result := Validate(d)

	for _, w := range result.Warnings {
		assert.NotContains(t, w, "duplicate")
	}
}

func TestValidate_StarMixedWithColumns(t *testing.T) {
	d := Descriptor{Select: NewSelect(Column{Name: "*"}, Column{Name: "id"})}

	result := Validate(d)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "mixed")
}

func TestValidate_RepeatedOrderColumn(t *testing.T) {
	d := Descriptor{Order: []OrderItem{{Column: "id"}, {Column: "id", Direction: Desc}}}

	result := Validate(d)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "ordered more than once")
}
