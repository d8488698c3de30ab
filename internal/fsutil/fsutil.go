// Package fsutil holds file helpers shared by the save tools.
package fsutil

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces path with data. The bytes go to a temporary
// sibling first, which is synced and renamed into place, so readers see
// either the old file or the new one. An existing file's permissions are
// kept; a new file gets perm.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
