package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAtLeastOneIndexColumn(t *testing.T) {
	_, err := New(Column{Name: "value", Type: Float64})
	assert.Error(t, err)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New(
		Column{Name: "ts", Type: TimestampS, Index: true},
		Column{Name: "ts", Type: Float64},
	)
	assert.Error(t, err)
}

func TestNewRejectsNonComparableIndex(t *testing.T) {
	_, err := New(Column{Name: "blob", Type: Bytes, Index: true})
	assert.Error(t, err)
}

func TestStorageOrderPutsIndexColumnsFirst(t *testing.T) {
	sc, err := New(
		Column{Name: "value", Type: Float64},
		Column{Name: "ts", Type: TimestampS, Index: true},
		Column{Name: "tag", Type: String},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"ts", "value", "tag"}, sc.StorageOrder())
}

func TestValidateChecksNamesAndLengths(t *testing.T) {
	sc, err := New(
		Column{Name: "ts", Type: TimestampS, Index: true},
		Column{Name: "value", Type: Float64},
	)
	require.NoError(t, err)

	assert.NoError(t, sc.Validate(map[string]int{"ts": 3, "value": 3}))
	assert.Error(t, sc.Validate(map[string]int{"ts": 3, "value": 4}))
	assert.Error(t, sc.Validate(map[string]int{"ts": 3}))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sc, err := New(
		Column{Name: "ts", Type: TimestampS, Index: true},
		Column{Name: "value", Type: Float64, Codec: "lz4"},
	)
	require.NoError(t, err)

	data, err := Encode(sc)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, sc.Equal(got))
	col, ok := got.Column("value")
	require.True(t, ok)
	assert.Equal(t, "lz4", col.Codec)
}
