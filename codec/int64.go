package codec

import "encoding/binary"

// encodeInt64 delta-encodes vs (each element minus the previous, first
// element delta from zero) and zigzag-maps the deltas to unsigned varints.
// The result is then compressed either with zstd (default, best ratio) or,
// when hint is LZ4, with lz4 (faster, lower ratio) for columns where write
// latency matters more than storage footprint.
func encodeInt64(vs []int64, hint string) []byte {
	buf := make([]byte, 0, len(vs)*2)
	var prev int64
	var scratch [binary.MaxVarintLen64]byte
	for _, v := range vs {
		delta := v - prev
		prev = v
		zz := zigzagEncode(delta)
		n := binary.PutUvarint(scratch[:], zz)
		buf = append(buf, scratch[:n]...)
	}
	if hint == LZ4 {
		return lz4Compress(buf)
	}
	return zstdCompress(nil, buf)
}

func decodeInt64(data []byte, n int, hint string) ([]int64, error) {
	var raw []byte
	var err error
	if hint == LZ4 {
		raw, err = lz4Decompress(data, n*2)
	} else {
		raw, err = zstdDecompress(data, n*2)
	}
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, n)
	var prev int64
	for i, off := 0, 0; i < n; i++ {
		zz, m := binary.Uvarint(raw[off:])
		if m <= 0 {
			return nil, errShortBuffer
		}
		off += m
		prev += zigzagDecode(zz)
		out = append(out, prev)
	}
	return out, nil
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
