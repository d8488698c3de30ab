package luabins

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes sha256(Encode(values)).
//
// Encoding order is deterministic for a given forest, so two forests
// built the same way share a fingerprint. Equal forests built in a
// different insertion order may not.
func Fingerprint(values []*Value) ([32]byte, error) {
	data, err := Encode(values)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// FingerprintHex returns Fingerprint as lowercase hex.
func FingerprintHex(values []*Value) (string, error) {
	h, err := Fingerprint(values)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}
