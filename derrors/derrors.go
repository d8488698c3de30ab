// Package derrors defines the error categories shared by the SGB codecs.
//
// Every error returned by wire, luabins, lz4block and savefile wraps
// exactly one of the sentinel values below, so callers can classify a
// failure with errors.Is regardless of how much context was attached on
// the way up.
package derrors

import (
	"errors"
	"fmt"
)

//lint:file-ignore ST1012 prefixing error values with Err would stutter
var (
	// Format indicates a structurally invalid byte stream: bad signature,
	// unknown version, unknown tag byte, negative table size.
	Format = errors.New("format error")

	// Truncated indicates that fewer bytes were available than a field
	// requires.
	Truncated = errors.New("truncated input")

	// Encoding indicates a text field that is not valid UTF-8.
	Encoding = errors.New("invalid encoding")

	// Compression indicates a corrupt compressed block or a
	// decompressed size outside the expected capacity.
	Compression = errors.New("compression error")

	// Caller indicates invalid input handed to an encoder: too many
	// top-level values, an unsupported table key, a cyclic table.
	Caller = errors.New("invalid argument")

	// Checksum indicates a stored checksum that does not match the
	// recomputed one. Only reported when verification is requested.
	Checksum = errors.New("checksum mismatch")
)

// Kind returns the sentinel category wrapped by err, or nil when err
// does not belong to any category.
func Kind(err error) error {
	for _, k := range []error{Format, Truncated, Encoding, Compression, Caller, Checksum} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Wrap adds context to the error and allows
// unwrapping the result to recover the original error.
// It does nothing when *errp == nil.
//
// Example:
//
//	defer derrors.Wrap(&err, "Read(%d bytes)", len(data))
func Wrap(errp *error, format string, args ...any) {
	if *errp != nil {
		*errp = fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), *errp)
	}
}
