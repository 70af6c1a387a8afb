package commit

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/schema"
)

// encodeIndex serialises an index tuple column by column, in the order
// given by types, per spec.md §6 ("start_key ... column-serialised").
func encodeIndex(idx frame.Index, types []schema.Type) []byte {
	var buf []byte
	for i, t := range types {
		var v frame.Value
		if i < len(idx.Values) {
			v = idx.Values[i]
		}
		buf = appendValue(buf, t, v)
	}
	return buf
}

func appendValue(buf []byte, t schema.Type, v frame.Value) []byte {
	switch t {
	case schema.Float64:
		var scratch [8]byte
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(v.Float64))
		return append(buf, scratch[:]...)
	case schema.Bool:
		if v.Bool {
			return append(buf, 1)
		}
		return append(buf, 0)
	case schema.String:
		return appendBytes(buf, []byte(v.Str))
	case schema.Bytes:
		return appendBytes(buf, v.Bin)
	default:
		var scratch [8]byte
		binary.LittleEndian.PutUint64(scratch[:], uint64(v.Int64))
		return append(buf, scratch[:]...)
	}
}

func appendBytes(buf, v []byte) []byte {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(v)))
	buf = append(buf, scratch[:n]...)
	return append(buf, v...)
}

// decodeIndex reverses encodeIndex, returning the tuple and the number of
// bytes consumed.
func decodeIndex(data []byte, types []schema.Type) (frame.Index, int, error) {
	off := 0
	values := make([]frame.Value, len(types))
	for i, t := range types {
		v, n, err := readValue(data[off:], t)
		if err != nil {
			return frame.Index{}, 0, fmt.Errorf("commit: decode index column %d: %w", i, err)
		}
		values[i] = v
		off += n
	}
	return frame.Index{Values: values}, off, nil
}

func readValue(data []byte, t schema.Type) (frame.Value, int, error) {
	switch t {
	case schema.Float64:
		if len(data) < 8 {
			return frame.Value{}, 0, errShortIndex
		}
		bits := binary.LittleEndian.Uint64(data[:8])
		return frame.Value{Type: t, Float64: math.Float64frombits(bits)}, 8, nil
	case schema.Bool:
		if len(data) < 1 {
			return frame.Value{}, 0, errShortIndex
		}
		return frame.Value{Type: t, Bool: data[0] != 0}, 1, nil
	case schema.String:
		b, n, err := readBytes(data)
		return frame.Value{Type: t, Str: string(b)}, n, err
	case schema.Bytes:
		b, n, err := readBytes(data)
		return frame.Value{Type: t, Bin: b}, n, err
	default:
		if len(data) < 8 {
			return frame.Value{}, 0, errShortIndex
		}
		v := int64(binary.LittleEndian.Uint64(data[:8]))
		return frame.Value{Type: t, Int64: v}, 8, nil
	}
}

func readBytes(data []byte) ([]byte, int, error) {
	l, n := binary.Uvarint(data)
	if n <= 0 || n+int(l) > len(data) {
		return nil, 0, errShortIndex
	}
	out := make([]byte, l)
	copy(out, data[n:n+int(l)])
	return out, n + int(l), nil
}
