package compressor

import (
	ddzstd "github.com/DataDog/zstd"
	"github.com/klauspost/compress/zstd"
	"log"
)

// ZstdCompressor is the zstd outbox codec, selected by deployments that
// expect large serialized payloads (batched mission-completed fan-out).
type ZstdCompressor struct{}

// CompressWithDdzstd compresses using the cgo DataDog binding instead of the
// pure-Go klauspost implementation Compress uses. Kept as an alternate path
// for environments where cgo is available and the extra throughput matters.
func (z *ZstdCompressor) CompressWithDdzstd(src []byte) ([]byte, error) {
	buf := make([]byte, ddzstd.CompressBound(len(src)))
	return ddzstd.CompressLevel(buf, src, ddzstd.DefaultCompression)
}

// DecompressWithDdzstd is the CompressWithDdzstd counterpart.
func (z *ZstdCompressor) DecompressWithDdzstd(src []byte) ([]byte, error) {
	var decodedSize int
	out := make([]byte, decodedSize)
	return ddzstd.Decompress(out, src)
}

func (z *ZstdCompressor) Compress(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		log.Fatalf("zstd encoder create error: %v", err)
		return nil, ErrIncompressible
	}

	compressed := enc.EncodeAll(src, nil)
	if len(compressed) >= len(src) {
		return nil, ErrNotShrunk
	}

	return compressed, nil
}

func (z *ZstdCompressor) Decompress(src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		log.Fatalf("zstd decoder create error: %v", err)
		return nil, err
	}
	decompressed, err := dec.DecodeAll(src, nil)
	if err != nil {
		log.Fatalf("zstd decode error: %v", err)
		return nil, err
	}
	return decompressed, nil
}
