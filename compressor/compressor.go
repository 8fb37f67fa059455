// Package compressor selects an outbox payload codec. The outbox stores a
// codec name alongside each row so a sweeper can decompress with whichever
// codec wrote it, even across a deployment that changes the default.
package compressor

import "github.com/cockroachdb/errors"

// Compresser is the common interface every codec implements.
type Compresser interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

var ErrIncompressible = errors.New("compress error")

// ErrNotShrunk is returned when compression did not reduce the payload size.
var ErrNotShrunk = errors.New("compressed size not reduced")
