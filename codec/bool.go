package codec

// encodeBool packs booleans 8-per-byte before zstd compression.
func encodeBool(vs []bool) []byte {
	packed := make([]byte, (len(vs)+7)/8)
	for i, v := range vs {
		if v {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	return zstdCompress(nil, packed)
}

func decodeBool(data []byte, n int) ([]bool, error) {
	packed, err := zstdDecompress(data, (n+7)/8)
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = packed[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}
