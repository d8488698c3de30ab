package savefile

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/lz4block"
	"github.com/Neumenon/sgb/wire"
)

// Write encodes a container. The stored checksum is always recomputed;
// Header.Checksum is ignored.
func Write(save Save) (_ []byte, err error) {
	defer derrors.Wrap(&err, "savefile.Write(%s)", versionOf(save))

	if save == nil {
		return nil, fmt.Errorf("nil save: %w", derrors.Caller)
	}
	h := save.Common()
	blob, err := lz4block.Compress(h.LuaState)
	if err != nil {
		return nil, err
	}
	if uint64(len(blob)) > math.MaxUint32 {
		return nil, fmt.Errorf("compressed state of %d bytes exceeds u32 length: %w", len(blob), derrors.Caller)
	}

	w := wire.NewWriter(256 + len(blob))
	w.Raw([]byte(Signature))
	w.U32(0) // checksum, sealed below
	w.U32(uint32(save.Version()))
	w.U64(h.Timestamp)
	if err := writeString(w, "location", h.Location); err != nil {
		return nil, err
	}

	switch s := save.(type) {
	case *SaveV16:
		w.U32(h.Runs)
		w.U32(s.ActiveMetaPoints)
		w.U32(s.ActiveShrinePoints)
	case *SaveV17:
		w.Raw(s.Padding[:])
		w.U32(h.Runs)
	}

	w.Bool(h.GodModeEnabled)
	w.Bool(h.HellModeEnabled)
	w.U32(uint32(len(h.LuaKeys)))
	for i, k := range h.LuaKeys {
		if err := writeString(w, fmt.Sprintf("lua_keys[%d]", i), k); err != nil {
			return nil, err
		}
	}
	if err := writeString(w, "current_map_name", h.CurrentMapName); err != nil {
		return nil, err
	}
	if err := writeString(w, "start_next_map", h.StartNextMap); err != nil {
		return nil, err
	}
	w.U32(uint32(len(blob)))
	w.Raw(blob)

	sealChecksum(w)
	return w.Bytes(), nil
}

func writeString(w *wire.Writer, field, s string) error {
	if !utf8.ValidString(s) {
		return &EncodingError{Field: field, Offset: w.Len()}
	}
	if uint64(len(s)) > math.MaxUint32 {
		return fmt.Errorf("%s: %d bytes exceeds u32 length: %w", field, len(s), derrors.Caller)
	}
	w.String(s)
	return nil
}

func versionOf(save Save) string {
	if save == nil {
		return "nil"
	}
	return save.Version().String()
}
