package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

// AuthenticateRequest carries one credential-verification attempt.
type AuthenticateRequest struct {
	Username  string
	Secret    string
	DeviceID  string
	IPAddress string
	UserAgent string
}

// AuthenticateResponse reports the verified identity.
type AuthenticateResponse struct {
	UserID      uint
	UserUUID    string
	Username    string
	IsAdmin     bool
	DeviceID    string
	DeviceBound bool
}

// CreateSessionRequest binds an authenticated user to an application session.
type CreateSessionRequest struct {
	UserID        uint
	ApplicationID uint
	DeviceID      string
	IPAddress     string
	UserAgent     string
}

// CreateSessionResponse returns the issued session and its access token.
// The token itself is never persisted, only its hash.
type CreateSessionResponse struct {
	SessionID   uuid.UUID
	AccessToken string
	ExpiresAt   time.Time
}

// ValidateSessionResponse reports a live session after lazy-expiry checks.
type ValidateSessionResponse struct {
	SessionID uuid.UUID
	UserID    uint
	Username  string
	ExpiresAt time.Time
}

// CreateUserRequest is the administrative provisioning input. The secret is
// plaintext here and hashed before it reaches any repository.
type CreateUserRequest struct {
	Username      string
	Email         string
	Secret        string
	IsAdmin       bool
	SecurityLevel int
	DeviceLocked  bool
	HardwareInfo  string
}

// CreateUserResponse reports the provisioned identity.
type CreateUserResponse struct {
	UserID   uint
	UserUUID string
}

// CreateApplicationRequest registers a client application.
type CreateApplicationRequest struct {
	Name                string
	Description         string
	CurrentVersion      string
	MinimumVersion      string
	RequiresLicense     bool
	RequiredLicenseType domain.LicenseTier
}

// CreateApplicationResponse carries the secret key exactly once; it is never
// re-displayed afterwards.
type CreateApplicationResponse struct {
	ApplicationID uint
	AppUUID       string
	SecretKey     string
}

// IssueLicensesRequest mints a batch of unused licenses.
type IssueLicensesRequest struct {
	Type            domain.LicenseTier
	Count           int
	MaxApplications int
	MaxDevices      int
	ExpiresAt       *time.Time
}

// IssuedLicense is one minted key with its quota parameters.
type IssuedLicense struct {
	Key             string
	Type            domain.LicenseTier
	MaxApplications int
	MaxDevices      int
}
