// Package luabins implements the luabins tagged-value encoding used for
// the scripting-engine state inside SGB save files.
//
// # Stream Layout
//
// A stream is one count byte N followed by N values. Each value starts
// with a tag byte:
//
//	'-' (0x2D)  nil
//	'0' (0x30)  false
//	'1' (0x31)  true
//	'N' (0x4E)  number: f64
//	'S' (0x53)  string: u32 length, bytes
//	'T' (0x54)  table:  i32 array size, i32 hash size, then
//	            (array size + hash size) key/value pairs
//
// # Numbers
//
// Every number is stored as a float64. On decode a number with no
// fractional part becomes an integer, so Float(5) comes back as Int(5).
// The array/hash split of a table is bookkeeping only: decode inserts
// every pair into one mapping, encode derives the split from the length
// of the table's 1..n prefix.
package luabins

import (
	"fmt"

	"github.com/Neumenon/sgb/derrors"
)

// Tag bytes.
const (
	TagNil    byte = 0x2D
	TagFalse  byte = 0x30
	TagTrue   byte = 0x31
	TagNumber byte = 0x4E
	TagString byte = 0x53
	TagTable  byte = 0x54
)

// MaxTopLevel is the largest forest a stream can hold; the count is a
// single byte.
const MaxTopLevel = 255

// FormatError is returned for a structurally invalid stream.
type FormatError struct {
	Reason string
	Offset int
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("luabins: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("luabins: %s", e.Reason)
}

// Unwrap reports the error category.
func (e *FormatError) Unwrap() error { return derrors.Format }
