// Package hash computes the content digests used to verify exported plans.
//
// Digests are lowercase hex SHA-256. A digest is taken of the serialized
// plan before it is written and compared against what the filesystem
// hands back afterwards.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Bytes returns the digest of data.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Short returns the first 12 characters of a digest for display.
func Short(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}
