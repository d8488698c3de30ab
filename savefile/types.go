// Package savefile reads and writes SGB1 save containers.
//
// A container is a small fixed header followed by an LZ4 raw block
// holding the luabins-encoded Lua state:
//
//	"SGB1" | adler32(bytes[8:]) | version u32 | timestamp u64 | location
//	V16: runs u32 | active_meta_points u32 | active_shrine_points u32
//	V17: padding [12]byte | runs u32
//	god_mode u8 | hell_mode u8 | lua_keys | current_map_name |
//	start_next_map | state_len u32 | state_lz4 [state_len]byte
//
// Strings are a u32 byte length followed by UTF-8 bytes. All integers
// use the host's native byte order.
package savefile

import (
	"fmt"

	"github.com/Neumenon/sgb/derrors"
)

// Signature is the magic at the start of every container.
const Signature = "SGB1"

// UncompressedSize is the decompressed state buffer capacity for every
// supported version.
const UncompressedSize = 9388032

// Version is the container layout version.
type Version uint32

const (
	V16 Version = 16 // Hades
	V17 Version = 17 // Hades II
)

// String returns the version name.
func (v Version) String() string {
	switch v {
	case V16, V17:
		return fmt.Sprintf("v%d", uint32(v))
	default:
		return fmt.Sprintf("unknown(%d)", uint32(v))
	}
}

// Header holds the fields shared by every version.
type Header struct {
	Timestamp       uint64
	Location        string
	Runs            uint32
	GodModeEnabled  bool
	HellModeEnabled bool
	LuaKeys         []string
	CurrentMapName  string
	StartNextMap    string

	// Checksum is the value stored in the file when it was read. Write
	// ignores it and always stores a fresh one.
	Checksum uint32

	// LuaState is the decompressed luabins stream.
	LuaState []byte
}

// Save is a decoded container. The concrete type is *SaveV16 or
// *SaveV17.
type Save interface {
	Version() Version
	Common() *Header
	sealed()
}

// SaveV16 is a version 16 container.
type SaveV16 struct {
	Header
	ActiveMetaPoints   uint32
	ActiveShrinePoints uint32
}

// Version returns V16.
func (*SaveV16) Version() Version { return V16 }

// Common returns the shared fields.
func (s *SaveV16) Common() *Header { return &s.Header }

func (*SaveV16) sealed() {}

// SaveV17 is a version 17 container.
type SaveV17 struct {
	Header

	// Padding is carried through unchanged.
	Padding [12]byte
}

// Version returns V17.
func (*SaveV17) Version() Version { return V17 }

// Common returns the shared fields.
func (s *SaveV17) Common() *Header { return &s.Header }

func (*SaveV17) sealed() {}

// clone returns a copy of s whose slices are not shared with s.
func clone(s Save) Save {
	switch s := s.(type) {
	case *SaveV16:
		c := *s
		c.Header = s.Header.clone()
		return &c
	case *SaveV17:
		c := *s
		c.Header = s.Header.clone()
		return &c
	default:
		panic(fmt.Sprintf("savefile: unknown save type %T", s))
	}
}

func (h Header) clone() Header {
	h.LuaKeys = append([]string(nil), h.LuaKeys...)
	h.LuaState = append([]byte(nil), h.LuaState...)
	return h
}

// ============================================================
// Errors
// ============================================================

// FormatError reports a container that is structurally invalid.
type FormatError struct {
	Reason string
	Offset int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("savefile: %s at offset %d", e.Reason, e.Offset)
}

// Unwrap reports the error category.
func (e *FormatError) Unwrap() error { return derrors.Format }

// EncodingError reports a text field that is not valid UTF-8.
type EncodingError struct {
	Field  string
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("savefile: %s at offset %d is not valid UTF-8", e.Field, e.Offset)
}

// Unwrap reports the error category.
func (e *EncodingError) Unwrap() error { return derrors.Encoding }

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Stored   uint32
	Computed uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("savefile: checksum mismatch: stored %08x, computed %08x", e.Stored, e.Computed)
}

// Unwrap reports the error category.
func (e *ChecksumMismatchError) Unwrap() error { return derrors.Checksum }
