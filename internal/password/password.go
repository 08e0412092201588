// Package password derives and verifies salted password digests.
//
// The stored format is hex(salt) + "$" + hex(key), where key is a 256-bit
// PBKDF2-SHA256 derivation over 100,000 iterations. Verification also
// accepts digests from the pre-salting era: a bare SHA-256 hex of the
// plaintext with no "$" separator, kept only so old rows keep working
// until they are rehashed.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100000
)

// Hash derives a digest for password with a fresh random salt.
func Hash(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

// Verify reports whether password matches stored. A malformed stored digest
// never errors; it simply fails verification.
func Verify(password, stored string) bool {
	saltHex, keyHex, ok := strings.Cut(stored, "$")
	if !ok {
		return verifyLegacy(password, stored)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(keyHex)
	if err != nil || len(expected) == 0 {
		return false
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// verifyLegacy checks an unsalted SHA-256 hex digest.
func verifyLegacy(password, stored string) bool {
	expected, err := hex.DecodeString(stored)
	if err != nil {
		return false
	}
	sum := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(sum[:], expected) == 1
}
