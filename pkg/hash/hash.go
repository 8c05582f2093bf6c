// Package hash is the content-identity primitive used throughout the patch
// engine: a deterministic, collision-resistant digest over raw bytes,
// encoded as a stable hex string. Every hash persisted in a manifest commits
// its reader to this algorithm for the lifetime of that manifest.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SumFile returns the hex-encoded SHA-256 digest of the file at path.
func SumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}

// Equal reports whether two hex digests name the same content. This is the
// sole identity test the engine performs; it never compares raw bytes.
func Equal(a, b string) bool {
	return a == b
}
