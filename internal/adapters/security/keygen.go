package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const licenseKeyBytes = 32

// HexKeyGenerator mints identifiers from crypto/rand. License keys are
// 64-char uppercase hex from 256 bits of entropy; collision probability is
// negligible and the store's uniqueness constraint is the backstop, so no
// retry loop exists anywhere.
type HexKeyGenerator struct{}

func NewHexKeyGenerator() *HexKeyGenerator {
	return &HexKeyGenerator{}
}

func (g *HexKeyGenerator) LicenseKey() (string, error) {
	s, err := g.Secret(licenseKeyBytes)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(s), nil
}

// Secret returns n random bytes hex-encoded; callers pick the width per use
// case (application secrets, user UUID strings).
func (g *HexKeyGenerator) Secret(bytes int) (string, error) {
	if bytes <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", bytes)
	}
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
