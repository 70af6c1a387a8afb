package frame

import (
	"bytes"
	"strings"

	"github.com/lakota-db/lakota/schema"
)

// Value is a single scalar, tagged by schema.Type, used to build and
// compare Index tuples without reflection.
type Value struct {
	Type  schema.Type
	Int64 int64
	Float64 float64
	Bool  bool
	Str   string
	Bin   []byte
}

// Int64Value builds an integer/timestamp Value.
func Int64Value(t schema.Type, v int64) Value { return Value{Type: t, Int64: v} }

// Float64Value builds a float Value.
func Float64Value(v float64) Value { return Value{Type: schema.Float64, Float64: v} }

// StringValue builds a string Value.
func StringValue(v string) Value { return Value{Type: schema.String, Str: v} }

// Compare returns -1, 0, 1 comparing v to other. Both must share Type.
func (v Value) Compare(other Value) int {
	switch v.Type {
	case schema.Float64:
		switch {
		case v.Float64 < other.Float64:
			return -1
		case v.Float64 > other.Float64:
			return 1
		default:
			return 0
		}
	case schema.Bool:
		if v.Bool == other.Bool {
			return 0
		}
		if !v.Bool {
			return -1
		}
		return 1
	case schema.String:
		return strings.Compare(v.Str, other.Str)
	case schema.Bytes:
		return bytes.Compare(v.Bin, other.Bin)
	default:
		switch {
		case v.Int64 < other.Int64:
			return -1
		case v.Int64 > other.Int64:
			return 1
		default:
			return 0
		}
	}
}

// Index is an index-column tuple: the sort/lookup key of a Frame or Commit
// boundary (start/stop).
type Index struct {
	Values []Value
}

// Compare compares two index tuples element-wise, left to right.
func (idx Index) Compare(other Index) int {
	for i := 0; i < len(idx.Values) && i < len(other.Values); i++ {
		if c := idx.Values[i].Compare(other.Values[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(idx.Values) < len(other.Values):
		return -1
	case len(idx.Values) > len(other.Values):
		return 1
	default:
		return 0
	}
}

// Less reports whether idx sorts before other.
func (idx Index) Less(other Index) bool { return idx.Compare(other) < 0 }

// Max returns the greater of a, b.
func Max(a, b Index) Index {
	if a.Less(b) {
		return b
	}
	return a
}

// Min returns the lesser of a, b.
func Min(a, b Index) Index {
	if b.Less(a) {
		return b
	}
	return a
}

func valueAt(c Column, i int) Value {
	switch c.Type {
	case schema.Float64:
		return Value{Type: c.Type, Float64: c.Float64[i]}
	case schema.Bool:
		return Value{Type: c.Type, Bool: c.Bool[i]}
	case schema.String:
		return Value{Type: c.Type, Str: c.Str[i]}
	case schema.Bytes:
		return Value{Type: c.Type, Bin: c.Bin[i]}
	default:
		return Value{Type: c.Type, Int64: c.Int64[i]}
	}
}

func compareColValue(c Column, i int, v Value) int {
	return valueAt(c, i).Compare(v)
}
