// Package codec implements the per-type array compressors used by Segment
// column blobs (spec.md §4.2). Encoding is deterministic and stable so that
// content addressing (spec.md §9 "content addressing everywhere") produces
// the same digest for the same logical column values.
//
// The compression scheme is grounded on arloliu/mebo's columnar timeseries
// codecs (delta+zigzag varint for integers, byte-shuffle for floats,
// dictionary encoding for low-cardinality strings) layered with
// klauspost/compress's zstd and pierrec/lz4 as the generic byte-stream
// compressors, and cespare/xxhash for dictionary hashing.
package codec

import (
	"fmt"

	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/schema"
)

// LZ4 selects the fast/low-ratio codec for Int64-family columns (see
// schema.Column.Codec). Any other value, including "", uses the default
// zstd-based delta codec.
const LZ4 = "lz4"

// Encode compresses c into its on-disk column blob payload. An empty column
// encodes to an empty byte slice, matching the original implementation's
// "empty array -> empty bytes" shortcut. hint names the codec variant to use
// (schema.Column.Codec); only the Int64 family currently offers an
// alternative (LZ4).
func Encode(c frame.Column, hint string) ([]byte, error) {
	if c.Len() == 0 {
		return nil, nil
	}
	switch c.Type {
	case schema.Float64:
		return encodeFloat64(c.Float64), nil
	case schema.Bool:
		return encodeBool(c.Bool), nil
	case schema.String:
		return encodeString(c.Str), nil
	case schema.Bytes:
		return encodeBytes(c.Bin), nil
	case schema.Int64, schema.TimestampNS, schema.TimestampUS, schema.TimestampMS, schema.TimestampS, schema.Date:
		return encodeInt64(c.Int64, hint), nil
	default:
		return nil, fmt.Errorf("codec: unsupported type %s", c.Type)
	}
}

// Decode decompresses data, produced by Encode, into a Column of type t
// holding n elements. hint must match the value passed to Encode.
func Decode(data []byte, t schema.Type, n int, hint string) (frame.Column, error) {
	if n == 0 {
		return zeroColumn(t), nil
	}
	switch t {
	case schema.Float64:
		vs, err := decodeFloat64(data, n)
		return frame.Column{Type: t, Float64: vs}, err
	case schema.Bool:
		vs, err := decodeBool(data, n)
		return frame.Column{Type: t, Bool: vs}, err
	case schema.String:
		vs, err := decodeString(data, n)
		return frame.Column{Type: t, Str: vs}, err
	case schema.Bytes:
		vs, err := decodeBytes(data, n)
		return frame.Column{Type: t, Bin: vs}, err
	case schema.Int64, schema.TimestampNS, schema.TimestampUS, schema.TimestampMS, schema.TimestampS, schema.Date:
		vs, err := decodeInt64(data, n, hint)
		return frame.Column{Type: t, Int64: vs}, err
	default:
		return frame.Column{}, fmt.Errorf("codec: unsupported type %s", t)
	}
}

func zeroColumn(t schema.Type) frame.Column {
	c := frame.Column{Type: t}
	switch t {
	case schema.Float64:
		c.Float64 = []float64{}
	case schema.Bool:
		c.Bool = []bool{}
	case schema.String:
		c.Str = []string{}
	case schema.Bytes:
		c.Bin = [][]byte{}
	default:
		c.Int64 = []int64{}
	}
	return c
}
