package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical authentication identity aggregate.
// Username and email are globally unique, immutable identifiers of identity;
// device binding and lockout accounting live on the row so authentication
// decisions need a single read.
type User struct {
	ID                  uint
	UUID                string
	Username            string
	Email               string
	PasswordVerifier    string
	Status              string
	IsAdmin             bool
	SecurityLevel       int
	FailedLoginAttempts int
	LockoutUntil        *time.Time
	LastLoginAt         *time.Time
	LastLoginIP         string
	RegisteredDeviceID  string
	HardwareInfo        string
	DeviceLocked        bool
	LicenseKey          string
	LicenseType         LicenseTier
	LicenseExpiresAt    *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastActivityAt      time.Time
}

// LockedOutAt reports whether the lockout window is open at the given instant.
func (u User) LockedOutAt(now time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(now)
}

// Session models a login session bound to a user, a device, and optionally an
// application. Expiry is evaluated lazily on every read path; the stored
// is_active flag alone is never trusted.
type Session struct {
	ID              uint
	SessionID       uuid.UUID
	UserID          uint
	ApplicationID   *uint
	DeviceID        string
	IPAddress       string
	UserAgent       string
	IsActive        bool
	ExpiresAt       time.Time
	AccessTokenHash string
	LastActivityAt  time.Time
	CreatedAt       time.Time
}

// ActiveAt applies the lazy-expiry rule: a session past expires_at is
// inactive even if the stored flag has not been flipped yet.
func (s Session) ActiveAt(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// ApplicationRole grants a user a role within one application. Grants are
// stored as join rows rather than serialized lists on the user.
type ApplicationRole struct {
	UserID        uint
	ApplicationID uint
	Role          string
	GrantedAt     time.Time
}

// SecurityEvent is an append-only audit record of a security-relevant
// occurrence. Never updated or deleted after insertion.
type SecurityEvent struct {
	ID            int64
	EventID       uuid.UUID
	EventType     string
	Severity      string
	UserID        *uint
	ApplicationID *uint
	DeviceID      string
	IPAddress     string
	Description   string
	Details       []byte
	CreatedAt     time.Time
}

// Security event severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)
