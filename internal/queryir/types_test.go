package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSealed(t *testing.T) {
	// Compile-time check: both field kinds satisfy Field
	var _ Field = Column{}
	var _ Field = Nested{}
}

func TestColumnKey(t *testing.T) {
	assert.Equal(t, "artist", Column{Name: "artist"}.Key())
	assert.Equal(t, "my_artist", Column{Name: "artist", Alias: "my_artist"}.Key())
}

func TestNestedNamespace(t *testing.T) {
	assert.Equal(t, "artist", Nested{Name: "artist"}.Namespace())
	assert.Equal(t, "a", Nested{Name: "artist", Alias: "a"}.Namespace())
}

func TestOrderItemString(t *testing.T) {
	tests := []struct {
		item OrderItem
		want string
	}{
		{OrderItem{Column: "title", Direction: Desc}, "title DESC"},
		{OrderItem{Column: "width", Nulls: NullsFirst}, "width ASC NULLS FIRST"},
		{OrderItem{Column: "id", Direction: Desc, Nulls: NullsLast}, "id DESC NULLS LAST"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.String())
		})
	}
}

func TestDescriptorBuilders(t *testing.T) {
	base := Descriptor{}
	d := base.WithLimit(512).WithOffset(9321)

	require.NotNil(t, d.Limit)
	require.NotNil(t, d.Offset)
	assert.Equal(t, uint64(512), *d.Limit)
	assert.Equal(t, uint64(9321), *d.Offset)

	// The receiver is a copy
	assert.Nil(t, base.Limit)
	assert.Nil(t, base.Offset)
}
