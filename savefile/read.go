package savefile

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/luabins"
	"github.com/Neumenon/sgb/lz4block"
	"github.com/Neumenon/sgb/wire"
)

// ReadOption configures Read.
type ReadOption func(*readConfig)

type readConfig struct {
	verifyChecksum bool
	trimV16        bool
}

// WithChecksumVerification makes Read reject a container whose stored
// checksum does not match its contents. Off by default: the game does
// not require it and some tools write stale values.
func WithChecksumVerification() ReadOption {
	return func(c *readConfig) {
		c.verifyChecksum = true
	}
}

// WithV16Trim makes Read trim a version 16 state buffer to the luabins
// stream it holds, as is always done for version 17.
func WithV16Trim() ReadOption {
	return func(c *readConfig) {
		c.trimV16 = true
	}
}

// Read decodes a container. The returned Save does not alias data.
func Read(data []byte, opts ...ReadOption) (_ Save, err error) {
	defer derrors.Wrap(&err, "savefile.Read(%d bytes)", len(data))

	var cfg readConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := wire.NewReader(data)
	sig, err := r.Bytes(len(Signature), "signature")
	if err != nil {
		return nil, err
	}
	if string(sig) != Signature {
		return nil, &FormatError{Reason: "not a recognized save file", Offset: 0}
	}
	checksum, err := r.U32("checksum")
	if err != nil {
		return nil, err
	}
	versionOff := r.Offset()
	version, err := r.U32("version")
	if err != nil {
		return nil, err
	}

	switch Version(version) {
	case V16, V17:
	default:
		return nil, &FormatError{Reason: fmt.Sprintf("unsupported version %d", version), Offset: versionOff}
	}
	if cfg.verifyChecksum {
		if computed := Checksum(data); computed != checksum {
			return nil, &ChecksumMismatchError{Stored: checksum, Computed: computed}
		}
	}

	var (
		save Save
		trim bool
	)
	if Version(version) == V16 {
		s := &SaveV16{}
		err = readV16(r, s)
		save, trim = s, cfg.trimV16
	} else {
		s := &SaveV17{}
		err = readV17(r, s)
		save, trim = s, true
	}
	if err != nil {
		return nil, err
	}

	h := save.Common()
	h.Checksum = checksum
	if err := readState(r, h, trim); err != nil {
		return nil, err
	}
	return save, nil
}

func readV16(r *wire.Reader, s *SaveV16) (err error) {
	h := &s.Header
	if h.Timestamp, err = r.U64("timestamp"); err != nil {
		return err
	}
	if h.Location, err = readString(r, "location"); err != nil {
		return err
	}
	if h.Runs, err = r.U32("runs"); err != nil {
		return err
	}
	if s.ActiveMetaPoints, err = r.U32("active_meta_points"); err != nil {
		return err
	}
	if s.ActiveShrinePoints, err = r.U32("active_shrine_points"); err != nil {
		return err
	}
	return readTrailer(r, h)
}

func readV17(r *wire.Reader, s *SaveV17) (err error) {
	h := &s.Header
	if h.Timestamp, err = r.U64("timestamp"); err != nil {
		return err
	}
	if h.Location, err = readString(r, "location"); err != nil {
		return err
	}
	pad, err := r.Bytes(len(s.Padding), "padding")
	if err != nil {
		return err
	}
	copy(s.Padding[:], pad)
	if h.Runs, err = r.U32("runs"); err != nil {
		return err
	}
	return readTrailer(r, h)
}

// readTrailer reads the fields that follow the version-specific block.
func readTrailer(r *wire.Reader, h *Header) (err error) {
	if h.GodModeEnabled, err = r.Bool("god_mode_enabled"); err != nil {
		return err
	}
	if h.HellModeEnabled, err = r.Bool("hell_mode_enabled"); err != nil {
		return err
	}
	n, err := r.U32("lua_keys size")
	if err != nil {
		return err
	}
	// Each key costs at least its 4-byte length.
	h.LuaKeys = make([]string, 0, min(int(n), r.Remaining()/4))
	for i := 0; i < int(n); i++ {
		k, err := readString(r, fmt.Sprintf("lua_keys[%d]", i))
		if err != nil {
			return err
		}
		h.LuaKeys = append(h.LuaKeys, k)
	}
	if h.CurrentMapName, err = readString(r, "current_map_name"); err != nil {
		return err
	}
	if h.StartNextMap, err = readString(r, "start_next_map"); err != nil {
		return err
	}
	return nil
}

func readString(r *wire.Reader, field string) (_ string, err error) {
	defer derrors.Wrap(&err, "%s", field)

	n, err := r.U32("size")
	if err != nil {
		return "", err
	}
	off := r.Offset()
	b, err := r.Bytes(int(n), "string bytes")
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &EncodingError{Field: field, Offset: off}
	}
	return string(b), nil
}

// readState reads the compressed state blob into h.LuaState, trimming
// the decompressed buffer to the luabins stream when trim is set.
func readState(r *wire.Reader, h *Header, trim bool) (err error) {
	defer derrors.Wrap(&err, "lua_state")

	n, err := r.U32("size")
	if err != nil {
		return err
	}
	blob, err := r.Bytes(int(n), "bytes")
	if err != nil {
		return err
	}
	state, err := lz4block.Decompress(blob, UncompressedSize)
	if err != nil {
		return err
	}
	if trim {
		size, err := luabins.Size(state)
		if err != nil {
			return err
		}
		state = state[:size]
	}
	// Drop the rest of the UncompressedSize buffer.
	h.LuaState = bytes.Clone(state)
	return nil
}
