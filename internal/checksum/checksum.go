// Package checksum fingerprints course bundles so unchanged ones are not
// exported again.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Combine fingerprints a bundle checksum together with the export settings
// it was produced with, so a settings change invalidates earlier exports.
func Combine(sum, settings string) string {
	if settings == "" {
		return sum
	}
	h := sha256.Sum256([]byte(sum + "\x00" + settings))
	return hex.EncodeToString(h[:])
}
