package manifest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digester computes a lowercase hex digest over canonical manifest text.
// The seam exists so hosts embedding a hardware or remote signing primitive
// can swap the implementation; any replacement must stay byte-compatible
// with SHA256Digester.
type Digester interface {
	Sum(s string) string
}

// SHA256Digester digests with crypto/sha256.
type SHA256Digester struct{}

// Sum returns the 64-character lowercase hex SHA-256 digest of s.
func (SHA256Digester) Sum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Checksum computes the canonical checksum of a manifest using the given
// digester. The integrity field is stripped first so a manifest's
// self-declared hash never participates in its own hash.
func Checksum(m *Manifest, d Digester) (string, error) {
	stripped := *m
	stripped.Integrity = nil

	value, err := canonicalValue(&stripped)
	if err != nil {
		return "", err
	}
	return d.Sum(Canonicalize(value)), nil
}
