package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 32
	keyLength  = 32
	iterations = 100000
)

// PBKDF2Hasher derives salted verifiers with PBKDF2-SHA256. The verifier is
// base64(salt || derivedKey); the salt is never stored separately once
// encoded. Parameters match the issuing tool this store interoperates with.
type PBKDF2Hasher struct{}

func NewPBKDF2Hasher() *PBKDF2Hasher {
	return &PBKDF2Hasher{}
}

func (h *PBKDF2Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(secret), salt, iterations, keyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(append(salt, key...)), nil
}

// Verify re-derives the key using the salt extracted from the verifier and
// compares in constant time. Any malformed verifier is a failed verification,
// never an error.
func (h *PBKDF2Hasher) Verify(secret, verifier string) bool {
	raw, err := base64.StdEncoding.DecodeString(verifier)
	if err != nil || len(raw) != saltLength+keyLength {
		return false
	}
	salt, stored := raw[:saltLength], raw[saltLength:]
	derived := pbkdf2.Key([]byte(secret), salt, iterations, keyLength, sha256.New)
	return subtle.ConstantTimeCompare(derived, stored) == 1
}
