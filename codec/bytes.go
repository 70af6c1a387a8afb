package codec

import "encoding/binary"

// encodeBytes concatenates length-prefixed items and zstd-compresses the
// result. Used for the Bytes column type; high-cardinality String columns
// use the same length-prefixed layout through packStrings in string.go.
func encodeBytes(vs [][]byte) []byte {
	return zstdCompress(nil, packLengthPrefixed(vs))
}

func decodeBytes(data []byte, n int) ([][]byte, error) {
	raw, err := zstdDecompress(data, 0)
	if err != nil {
		return nil, err
	}
	return unpackLengthPrefixed(raw, n)
}

func packLengthPrefixed(items [][]byte) []byte {
	var total int
	for _, it := range items {
		total += binary.MaxVarintLen64 + len(it)
	}
	buf := make([]byte, 0, total)
	var scratch [binary.MaxVarintLen64]byte
	for _, it := range items {
		m := binary.PutUvarint(scratch[:], uint64(len(it)))
		buf = append(buf, scratch[:m]...)
		buf = append(buf, it...)
	}
	return buf
}

func unpackLengthPrefixed(raw []byte, n int) ([][]byte, error) {
	out := make([][]byte, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		l, m := binary.Uvarint(raw[off:])
		if m <= 0 {
			return nil, errShortBuffer
		}
		off += m
		if off+int(l) > len(raw) {
			return nil, errShortBuffer
		}
		item := make([]byte, l)
		copy(item, raw[off:off+int(l)])
		off += int(l)
		out = append(out, item)
	}
	return out, nil
}
