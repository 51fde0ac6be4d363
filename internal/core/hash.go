package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashFile returns the lowercase hex SHA-256 digest of the raw file bytes.
// Any byte-level difference, including whitespace, yields a new digest.
func HashFile(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
