package frame

import (
	"bytes"
	"fmt"

	"github.com/lakota-db/lakota/schema"
)

// Column is a single typed, contiguous array. Exactly one of the typed
// slices is populated, matching its Type.
type Column struct {
	Type   schema.Type
	Int64  []int64  // Int64, TimestampNS/US/MS/S, Date (as unix ticks)
	Float64 []float64
	Bool   []bool
	Str    []string
	Bin    [][]byte
}

// Len returns the number of elements in the column.
func (c Column) Len() int {
	switch c.Type {
	case schema.Float64:
		return len(c.Float64)
	case schema.Bool:
		return len(c.Bool)
	case schema.String:
		return len(c.Str)
	case schema.Bytes:
		return len(c.Bin)
	default:
		return len(c.Int64)
	}
}

// Slice returns the sub-column [i:j).
func (c Column) Slice(i, j int) Column {
	out := Column{Type: c.Type}
	switch c.Type {
	case schema.Float64:
		out.Float64 = c.Float64[i:j]
	case schema.Bool:
		out.Bool = c.Bool[i:j]
	case schema.String:
		out.Str = c.Str[i:j]
	case schema.Bytes:
		out.Bin = c.Bin[i:j]
	default:
		out.Int64 = c.Int64[i:j]
	}
	return out
}

// Less reports whether element i sorts before element j.
func (c Column) Less(i, j int) bool {
	switch c.Type {
	case schema.Float64:
		return c.Float64[i] < c.Float64[j]
	case schema.Bool:
		return !c.Bool[i] && c.Bool[j]
	case schema.String:
		return c.Str[i] < c.Str[j]
	case schema.Bytes:
		return bytes.Compare(c.Bin[i], c.Bin[j]) < 0
	default:
		return c.Int64[i] < c.Int64[j]
	}
}

// Equal reports whether element i of c equals element j of other.
func (c Column) Equal(i int, other Column, j int) bool {
	switch c.Type {
	case schema.Float64:
		return c.Float64[i] == other.Float64[j]
	case schema.Bool:
		return c.Bool[i] == other.Bool[j]
	case schema.String:
		return c.Str[i] == other.Str[j]
	case schema.Bytes:
		return bytes.Equal(c.Bin[i], other.Bin[j])
	default:
		return c.Int64[i] == other.Int64[j]
	}
}

// Compare returns -1, 0 or 1 comparing element i of c to element j of other.
func (c Column) Compare(i int, other Column, j int) int {
	if c.Equal(i, other, j) {
		return 0
	}
	if c.less2(i, other, j) {
		return -1
	}
	return 1
}

// less2 compares element i of c against element j of a distinct column
// other (both must share c's Type).
func (c Column) less2(i int, other Column, j int) bool {
	switch c.Type {
	case schema.Float64:
		return c.Float64[i] < other.Float64[j]
	case schema.Bool:
		return !c.Bool[i] && other.Bool[j]
	case schema.String:
		return c.Str[i] < other.Str[j]
	case schema.Bytes:
		return bytes.Compare(c.Bin[i], other.Bin[j]) < 0
	default:
		return c.Int64[i] < other.Int64[j]
	}
}

func (c Column) String1(i int) string {
	switch c.Type {
	case schema.Float64:
		return fmt.Sprintf("%v", c.Float64[i])
	case schema.Bool:
		return fmt.Sprintf("%v", c.Bool[i])
	case schema.String:
		return c.Str[i]
	case schema.Bytes:
		return fmt.Sprintf("%x", c.Bin[i])
	default:
		return fmt.Sprintf("%v", c.Int64[i])
	}
}
