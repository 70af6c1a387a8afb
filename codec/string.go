package codec

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const dictModeRaw = 0
const dictModeDict = 1

// dictThresholdRatio: below this ratio of unique/total values, dictionary
// encoding pays off (fewer bytes than repeating full strings).
const dictThresholdRatio = 0.5

// encodeString picks between two representations: a low-cardinality
// dictionary (unique values + per-row indices) or a raw length-prefixed
// blob, deciding by building a hash index of the values with xxhash (fast,
// avoids Go's built-in string-map overhead for large columns) and counting
// distinct entries.
func encodeString(vs []string) []byte {
	buckets := make(map[uint64][]int) // hash -> indices into dict
	dict := make([]string, 0, len(vs))
	codes := make([]uint32, len(vs))
	for i, s := range vs {
		h := xxhash.Sum64String(s)
		found := -1
		for _, di := range buckets[h] {
			if dict[di] == s {
				found = di
				break
			}
		}
		if found < 0 {
			found = len(dict)
			dict = append(dict, s)
			buckets[h] = append(buckets[h], found)
		}
		codes[i] = uint32(found)
	}

	if float64(len(dict)) > dictThresholdRatio*float64(len(vs)) {
		return append([]byte{dictModeRaw}, zstdCompress(nil, packStrings(vs))...)
	}

	var scratch [binary.MaxVarintLen64]byte
	body := make([]byte, 0, len(codes)*2)
	n := binary.PutUvarint(scratch[:], uint64(len(dict)))
	body = append(body, scratch[:n]...)
	body = append(body, packStrings(dict)...)
	for _, c := range codes {
		n := binary.PutUvarint(scratch[:], uint64(c))
		body = append(body, scratch[:n]...)
	}
	return append([]byte{dictModeDict}, zstdCompress(nil, body)...)
}

func decodeString(data []byte, n int) ([]string, error) {
	if len(data) == 0 {
		return nil, errShortBuffer
	}
	mode, payload := data[0], data[1:]
	raw, err := zstdDecompress(payload, 0)
	if err != nil {
		return nil, err
	}
	switch mode {
	case dictModeRaw:
		return unpackStrings(raw, n)
	case dictModeDict:
		dictLen, m := binary.Uvarint(raw)
		if m <= 0 {
			return nil, errShortBuffer
		}
		off := m
		dictBytes, dictConsumed, err := unpackStringsN(raw[off:], int(dictLen))
		if err != nil {
			return nil, err
		}
		off += dictConsumed
		out := make([]string, n)
		for i := 0; i < n; i++ {
			c, m := binary.Uvarint(raw[off:])
			if m <= 0 {
				return nil, errShortBuffer
			}
			off += m
			if int(c) >= len(dictBytes) {
				return nil, errShortBuffer
			}
			out[i] = dictBytes[c]
		}
		return out, nil
	default:
		return nil, errShortBuffer
	}
}

func packStrings(vs []string) []byte {
	items := make([][]byte, len(vs))
	for i, s := range vs {
		items[i] = []byte(s)
	}
	return packLengthPrefixed(items)
}

func unpackStrings(raw []byte, n int) ([]string, error) {
	items, err := unpackLengthPrefixed(raw, n)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it)
	}
	return out, nil
}

// unpackStringsN decodes exactly n length-prefixed strings starting at the
// beginning of raw and reports how many bytes were consumed.
func unpackStringsN(raw []byte, n int) ([]string, int, error) {
	out := make([]string, 0, n)
	off := 0
	for i := 0; i < n; i++ {
		l, m := binary.Uvarint(raw[off:])
		if m <= 0 {
			return nil, 0, errShortBuffer
		}
		off += m
		if off+int(l) > len(raw) {
			return nil, 0, errShortBuffer
		}
		out = append(out, string(raw[off:off+int(l)]))
		off += int(l)
	}
	return out, off, nil
}
