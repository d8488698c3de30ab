package savefile

import (
	"hash/adler32"

	"github.com/Neumenon/sgb/wire"
)

const (
	checksumOffset = 4 // stored checksum, after the signature
	checksumStart  = 8 // first covered byte, the version field
)

// Checksum computes the Adler-32 of file[8:].
func Checksum(file []byte) uint32 {
	if len(file) < checksumStart {
		return adler32.Checksum(nil)
	}
	return adler32.Checksum(file[checksumStart:])
}

// VerifyChecksum compares the stored checksum against the recomputed one.
func VerifyChecksum(file []byte) error {
	r := wire.NewReader(file)
	if err := r.Skip(checksumOffset, "signature"); err != nil {
		return err
	}
	stored, err := r.U32("checksum")
	if err != nil {
		return err
	}
	if computed := Checksum(file); computed != stored {
		return &ChecksumMismatchError{Stored: stored, Computed: computed}
	}
	return nil
}

// sealChecksum stores the checksum of everything written so far.
func sealChecksum(w *wire.Writer) {
	w.PutU32At(checksumOffset, Checksum(w.Bytes()))
}
