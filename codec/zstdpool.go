package codec

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	decOnce sync.Once
	dec     *zstd.Decoder
)

func encoder() *zstd.Encoder {
	encOnce.Do(func() {
		enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return enc
}

func decoder() *zstd.Decoder {
	decOnce.Do(func() {
		dec, _ = zstd.NewReader(nil)
	})
	return dec
}

func zstdCompress(dst, src []byte) []byte {
	return encoder().EncodeAll(src, dst)
}

func zstdDecompress(data []byte, sizeHint int) ([]byte, error) {
	return decoder().DecodeAll(data, make([]byte, 0, sizeHint))
}
