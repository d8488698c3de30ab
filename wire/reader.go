// Package wire implements the fixed-width primitives shared by the SGB
// container and the luabins state codec.
//
// All multi-byte integers and floats use the host's native byte order,
// which is what the game writes. Reads take a label that is carried in
// the error when the buffer runs short.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Neumenon/sgb/derrors"
)

// order is the byte order of every multi-byte field.
var order = binary.NativeEndian

// TruncationError is returned when a read needs more bytes than remain.
type TruncationError struct {
	Label  string // field being read
	Need   int    // bytes required
	Have   int    // bytes available
	Offset int    // cursor position at the failed read
}

func (e *TruncationError) Error() string {
	unit := "bytes"
	if e.Need == 1 {
		unit = "byte"
	}
	return fmt.Sprintf("wire: read %s at offset %d: not enough data (needed %d %s, %d available)",
		e.Label, e.Offset, e.Need, unit, e.Have)
}

// Unwrap reports the error category.
func (e *TruncationError) Unwrap() error { return derrors.Truncated }

// Reader is a cursor over an in-memory byte buffer.
// A failed read leaves the cursor where it was.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int, label string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, &TruncationError{Label: label, Need: n, Have: r.Remaining(), Offset: r.off}
	}
	b := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

// Byte reads one byte.
func (r *Reader) Byte(label string) (byte, error) {
	b, err := r.take(1, label)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool reads one byte; any non-zero value is true.
func (r *Reader) Bool(label string) (bool, error) {
	b, err := r.Byte(label)
	return b != 0, err
}

// I32 reads a 4-byte signed integer.
func (r *Reader) I32(label string) (int32, error) {
	b, err := r.take(4, label)
	if err != nil {
		return 0, err
	}
	return int32(order.Uint32(b)), nil
}

// U32 reads a 4-byte unsigned integer.
func (r *Reader) U32(label string) (uint32, error) {
	b, err := r.take(4, label)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// U64 reads an 8-byte unsigned integer.
func (r *Reader) U64(label string) (uint64, error) {
	b, err := r.take(8, label)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

// F64 reads an 8-byte IEEE-754 float.
func (r *Reader) F64(label string) (float64, error) {
	b, err := r.take(8, label)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(order.Uint64(b)), nil
}

// Bytes reads n raw bytes. The result aliases the underlying buffer.
func (r *Reader) Bytes(n int, label string) ([]byte, error) {
	return r.take(n, label)
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int, label string) error {
	_, err := r.take(n, label)
	return err
}
