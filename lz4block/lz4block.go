// Package lz4block compresses and decompresses raw LZ4 blocks: no frame
// header, no content checksum, no size prefix. The caller supplies the
// decompressed size ceiling.
package lz4block

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/Neumenon/sgb/derrors"
)

// CompressionError reports a block that failed to compress or
// decompress.
type CompressionError struct {
	Op  string
	Err error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("lz4block: %s: %v", e.Op, e.Err)
}

// Unwrap returns derrors.Compression so callers can match the category.
func (e *CompressionError) Unwrap() []error { return []error{derrors.Compression, e.Err} }

// Decompress decodes one raw block into a buffer of maxSize bytes and
// returns the bytes actually produced. Output that would exceed maxSize
// is an error.
func Decompress(src []byte, maxSize int) ([]byte, error) {
	if maxSize < 0 {
		return nil, fmt.Errorf("lz4block: negative size ceiling %d: %w", maxSize, derrors.Caller)
	}
	dst := make([]byte, maxSize)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, &CompressionError{Op: fmt.Sprintf("decompress %d bytes", len(src)), Err: err}
	}
	return dst[:n], nil
}

// Compress encodes src as one raw block.
func Compress(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return nil, &CompressionError{Op: fmt.Sprintf("compress %d bytes", len(src)), Err: err}
	}
	if n == 0 {
		return literalBlock(src), nil
	}
	return dst[:n], nil
}

// literalBlock emits src as a single literal run. The LZ4 block format
// allows the last sequence to carry literals only.
func literalBlock(src []byte) []byte {
	n := len(src)
	out := make([]byte, 0, n+n/255+16)
	if n < 15 {
		return append(append(out, byte(n<<4)), src...)
	}
	out = append(out, 0xF0)
	rest := n - 15
	for rest >= 255 {
		out = append(out, 255)
		rest -= 255
	}
	out = append(out, byte(rest))
	return append(out, src...)
}
