package codec

import (
	"encoding/binary"
	"math"
)

// encodeFloat64 byte-shuffles the IEEE-754 representation (transposing the
// 8 byte-planes of the array) before zstd compression. Byte-shuffling groups
// similarly-distributed bytes (e.g. all the exponent bytes) together, which
// lets the general-purpose compressor exploit inter-value redundancy that is
// invisible in the natural little-endian layout.
func encodeFloat64(vs []float64) []byte {
	n := len(vs)
	raw := make([]byte, n*8)
	for i, v := range vs {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	shuffled := make([]byte, n*8)
	for plane := 0; plane < 8; plane++ {
		base := plane * n
		for i := 0; i < n; i++ {
			shuffled[base+i] = raw[i*8+plane]
		}
	}
	return zstdCompress(nil, shuffled)
}

func decodeFloat64(data []byte, n int) ([]float64, error) {
	shuffled, err := zstdDecompress(data, n*8)
	if err != nil {
		return nil, err
	}
	if len(shuffled) != n*8 {
		return nil, errShortBuffer
	}
	raw := make([]byte, n*8)
	for plane := 0; plane < 8; plane++ {
		base := plane * n
		for i := 0; i < n; i++ {
			raw[i*8+plane] = shuffled[base+i]
		}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return out, nil
}
