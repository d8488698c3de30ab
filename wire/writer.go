package wire

import (
	"math"
)

// Writer appends fixed-width values to a growing buffer.
// Writes never fail.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity preallocated for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the written bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Byte appends one byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// Bool appends 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.Byte(1)
		return
	}
	w.Byte(0)
}

// I32 appends a 4-byte signed integer.
func (w *Writer) I32(v int32) {
	w.buf = order.AppendUint32(w.buf, uint32(v))
}

// U32 appends a 4-byte unsigned integer.
func (w *Writer) U32(v uint32) {
	w.buf = order.AppendUint32(w.buf, v)
}

// U64 appends an 8-byte unsigned integer.
func (w *Writer) U64(v uint64) {
	w.buf = order.AppendUint64(w.buf, v)
}

// F64 appends an 8-byte IEEE-754 float.
func (w *Writer) F64(v float64) {
	w.buf = order.AppendUint64(w.buf, math.Float64bits(v))
}

// Raw appends b unchanged.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// String appends a u32 length prefix followed by the bytes of s.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// PutU32At overwrites the 4 bytes at off with v.
// It panics if off is not inside the written region.
func (w *Writer) PutU32At(off int, v uint32) {
	order.PutUint32(w.buf[off:off+4], v)
}
