package compressor

// NoneCompressor is the identity codec; the outbox's default so behavior is
// unaffected unless a deployment opts into zstd or lz4.
type NoneCompressor struct{}

func (NoneCompressor) Compress(src []byte) ([]byte, error) {
	return src, nil
}

func (NoneCompressor) Decompress(src []byte) ([]byte, error) {
	return src, nil
}
