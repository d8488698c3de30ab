package savefile

import (
	"bytes"
	"os"

	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/internal/fsutil"
	"github.com/Neumenon/sgb/luabins"
)

// BOM is the UTF-8 byte order mark. ReadFile strips it from the start
// of a file; some editors and sync tools prepend it.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode reads a container and decodes its Lua state.
func Decode(data []byte, opts ...ReadOption) (Save, []*luabins.Value, error) {
	save, err := Read(data, opts...)
	if err != nil {
		return nil, nil, err
	}
	values, err := luabins.Decode(save.Common().LuaState)
	if err != nil {
		return nil, nil, err
	}
	return save, values, nil
}

// Encode replaces the Lua state of a copy of save with forest and
// writes the result. save itself is not modified.
func Encode(save Save, forest []*luabins.Value) ([]byte, error) {
	if save == nil {
		return Write(nil)
	}
	state, err := luabins.Encode(forest)
	if err != nil {
		return nil, err
	}
	c := clone(save)
	c.Common().LuaState = state
	return Write(c)
}

// ReadFile reads and decodes the container at path.
func ReadFile(path string, opts ...ReadOption) (_ Save, err error) {
	defer derrors.Wrap(&err, "savefile.ReadFile(%q)", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(bytes.TrimPrefix(data, BOM), opts...)
}

// WriteFile encodes save and replaces path with it. The file is written
// to a temporary sibling first and renamed into place.
func WriteFile(path string, save Save) (err error) {
	defer derrors.Wrap(&err, "savefile.WriteFile(%q)", path)

	data, err := Write(save)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

// EncodeFile is Encode followed by an atomic write to path.
func EncodeFile(path string, save Save, forest []*luabins.Value) (err error) {
	defer derrors.Wrap(&err, "savefile.EncodeFile(%q)", path)

	data, err := Encode(save, forest)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
