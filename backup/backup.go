// Package backup archives save files before they are overwritten.
//
// An archive is the original file, byte for byte, compressed with zstd
// and named <base>.<UTC stamp>.sgb.zst.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Neumenon/sgb/derrors"
)

// Ext is the suffix of every archive.
const Ext = ".sgb.zst"

// stampLayout sorts lexically in time order.
const stampLayout = "20060102T150405.000Z"

// Both are built once and documented as safe for concurrent use.
var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

func compressionError(err error) error {
	return fmt.Errorf("zstd: %w", errors.Join(derrors.Compression, err))
}

// Name returns the archive file name for path at time now.
func Name(path string, now time.Time) string {
	return filepath.Base(path) + "." + now.UTC().Format(stampLayout) + Ext
}

// Write compresses data, the current contents of path, into dir. An
// empty dir means the directory holding path. It returns the archive's
// path and never replaces an existing archive.
func Write(dir, path string, data []byte, now time.Time) (_ string, err error) {
	defer derrors.Wrap(&err, "backup.Write(%q)", path)

	enc, err := encoder()
	if err != nil {
		return "", compressionError(err)
	}
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	archive := filepath.Join(dir, Name(path, now))
	f, err := os.OpenFile(archive, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(enc.EncodeAll(data, nil)); err != nil {
		f.Close()
		os.Remove(archive)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(archive)
		return "", err
	}
	return archive, nil
}

// Read returns the original bytes stored in an archive.
func Read(archive string) (_ []byte, err error) {
	defer derrors.Wrap(&err, "backup.Read(%q)", archive)

	if !strings.HasSuffix(archive, Ext) {
		return nil, fmt.Errorf("not a %s archive: %w", Ext, derrors.Caller)
	}
	dec, err := decoder()
	if err != nil {
		return nil, compressionError(err)
	}
	compressed, err := os.ReadFile(archive)
	if err != nil {
		return nil, err
	}
	data, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, compressionError(err)
	}
	return data, nil
}

// List returns the archives of path in dir, oldest first.
func List(dir, path string) ([]string, error) {
	if dir == "" {
		dir = filepath.Dir(path)
	}
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(filepath.Base(path))+".*"+Ext))
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}
