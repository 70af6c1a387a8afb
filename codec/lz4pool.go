package codec

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"
)

// lz4Compress prefixes the lz4 block with the uncompressed length (lz4's
// block API needs a size hint to allocate the decompression buffer).
func lz4Compress(src []byte) []byte {
	buf := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(src)))
	n := binary.PutUvarint(buf, uint64(len(src)))
	written, _ := lz4.CompressBlock(src, buf[n:], nil)
	if written == 0 {
		// Incompressible input: lz4 block mode requires the destination
		// buffer to fit; fall back to storing raw bytes prefixed with a
		// zero-length marker so decode knows to copy verbatim.
		out := make([]byte, binary.MaxVarintLen64+len(src))
		m := binary.PutUvarint(out, 0)
		copy(out[m:], src)
		return out[:m+len(src)]
	}
	return buf[:n+written]
}

func lz4Decompress(data []byte, sizeHint int) ([]byte, error) {
	origLen, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, errShortBuffer
	}
	body := data[n:]
	if origLen == 0 {
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}
	out := make([]byte, origLen)
	written, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, err
	}
	return out[:written], nil
}
