package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// opaqueTokenBytes is the entropy of verification and reset tokens. Encoded
// as hex the tokens are always 64 characters.
const opaqueTokenBytes = 32

// GenerateOpaqueToken returns a cryptographically random, fixed-length
// bearer token. These are not JWTs: they carry no claims and are looked up
// by exact match on the account record.
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hex digest of a token. Refresh tokens are
// stored hashed; equality of hashes preserves the exact-match semantics.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
