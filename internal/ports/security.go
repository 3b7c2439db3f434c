package ports

import (
	"time"

	"github.com/google/uuid"
)

// CredentialHasher turns a plaintext secret into a salted, irreversible
// verifier and checks candidate secrets against it. Verify treats any
// malformed verifier as a failed verification; it never panics or errors.
type CredentialHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, verifier string) bool
}

// KeyGenerator mints high-entropy identifiers from a cryptographically secure
// source. License keys are fixed-width uppercase hex from 32 bytes; Secret
// lets callers choose the byte count for application secrets and user UUIDs.
type KeyGenerator interface {
	LicenseKey() (string, error)
	Secret(bytes int) (string, error)
}

// SessionClaims is the adapter-neutral access-token payload.
type SessionClaims struct {
	UserID    uint
	Username  string
	SessionID uuid.UUID
	IsAdmin   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenSigner issues and validates session access tokens. Only the token's
// hash is persisted on the session row.
type TokenSigner interface {
	Sign(claims SessionClaims) (string, error)
	ParseAndValidate(token string) (SessionClaims, error)
}
