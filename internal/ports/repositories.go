package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

// CreateUserParams captures provisioning inputs for a new user identity.
// The verifier arrives already hashed; plaintext secrets never cross this port.
type CreateUserParams struct {
	UUID             string
	Username         string
	Email            string
	PasswordVerifier string
	IsAdmin          bool
	SecurityLevel    int
	DeviceLocked     bool
	HardwareInfo     string
	CreatedAt        time.Time
}

// LoginFailureResult reports the state after an atomic failed-login update.
type LoginFailureResult struct {
	FailedAttempts int
	LockoutUntil   *time.Time
	LockedNow      bool
}

// UserRepository defines persistence operations for user identities.
// Counter and binding mutations are atomic read-modify-write operations so
// concurrent authentication requests cannot lose updates.
type UserRepository interface {
	Create(ctx context.Context, params CreateUserParams) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByID(ctx context.Context, userID uint) (domain.User, error)
	// RecordLoginFailure increments failed_login_attempts and, when the
	// threshold is reached with no open window, sets lockout_until. Executed
	// in one transaction per row.
	RecordLoginFailure(ctx context.Context, userID uint, now time.Time, threshold int, lockoutWindow time.Duration) (LoginFailureResult, error)
	// RecordLoginSuccess resets the failure counter and stamps last login data.
	RecordLoginSuccess(ctx context.Context, userID uint, now time.Time, ip string) error
	// BindDeviceIfUnset binds the device on first successful login. The guard
	// is a conditional update; when two logins race, one wins and both see the
	// winning device identifier in the return value.
	BindDeviceIfUnset(ctx context.Context, userID uint, deviceID string, now time.Time) (string, error)
	// SetLicense denormalizes license key/type/expiry onto the user row after assignment.
	SetLicense(ctx context.Context, userID uint, key string, licenseType domain.LicenseTier, expiresAt *time.Time, now time.Time) error
	// GrantApplicationRole inserts or updates the (user, application) role
	// pair. The returned flag reports whether a new pair was created.
	GrantApplicationRole(ctx context.Context, userID, applicationID uint, role string, now time.Time) (bool, error)
	ListApplicationRoles(ctx context.Context, userID uint) ([]domain.ApplicationRole, error)
	Deactivate(ctx context.Context, userID uint, now time.Time) error
	TouchActivity(ctx context.Context, userID uint, now time.Time) error
}

// CreateLicenseParams captures inputs for issuing one license in unused state.
type CreateLicenseParams struct {
	Key             string
	Type            domain.LicenseTier
	MaxApplications int
	MaxDevices      int
	ExpiresAt       *time.Time
	CreatedAt       time.Time
}

// LicenseRepository manages the license lifecycle rows and their quota join
// tables. Assign/Activate lock the row so the state machine guards hold under
// concurrency; quota registration is idempotent per distinct application or
// device.
type LicenseRepository interface {
	CreateBatch(ctx context.Context, params []CreateLicenseParams) ([]domain.License, error)
	GetByKey(ctx context.Context, key string) (domain.License, error)
	// GetHeldByUser returns the user's assigned or active license,
	// domain.ErrNotFound when none is held.
	GetHeldByUser(ctx context.Context, userID uint) (domain.License, error)
	Assign(ctx context.Context, key string, userID uint, assignedTo string, now time.Time) (domain.License, error)
	Activate(ctx context.Context, key string, now time.Time) (domain.License, error)
	Revoke(ctx context.Context, key string, now time.Time) (domain.License, error)
	// RegisterApplication counts a distinct application against the quota.
	// Re-registering an already-counted application is a no-op.
	RegisterApplication(ctx context.Context, licenseID, applicationID uint) error
	// RegisterDevice adds a device to the license's registered set, bounded by max_devices.
	RegisterDevice(ctx context.Context, licenseID uint, deviceID string) error
	ListDevices(ctx context.Context, licenseID uint) ([]string, error)
	// MarkExpired flips overdue active/assigned licenses to expired; used by
	// the external sweep collaborator, never relied on for correctness.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

// CreateApplicationParams captures provisioning inputs for an application.
type CreateApplicationParams struct {
	UUID                string
	Name                string
	Description         string
	CurrentVersion      string
	MinimumVersion      string
	SecretKey           string
	RequiresLicense     bool
	RequiredLicenseType domain.LicenseTier
	CreatedAt           time.Time
}

// ApplicationRepository manages registered client applications.
type ApplicationRepository interface {
	Create(ctx context.Context, params CreateApplicationParams) (domain.Application, error)
	GetByID(ctx context.Context, applicationID uint) (domain.Application, error)
	GetByUUID(ctx context.Context, appUUID string) (domain.Application, error)
	// AdjustSessionCount moves the aggregate active_sessions counter by delta
	// as an atomic in-store update.
	AdjustSessionCount(ctx context.Context, applicationID uint, delta int, now time.Time) error
	IncrementTotalUsers(ctx context.Context, applicationID uint, now time.Time) error
	Deactivate(ctx context.Context, applicationID uint, now time.Time) error
}

// SessionCreateParams captures metadata required to create a session record.
type SessionCreateParams struct {
	SessionID       uuid.UUID
	UserID          uint
	ApplicationID   *uint
	DeviceID        string
	IPAddress       string
	UserAgent       string
	AccessTokenHash string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// SessionRepository manages persistent session lifecycle. Read paths must
// still apply the lazy-expiry rule; the repository only stores state.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]domain.Session, error)
	TouchActivity(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) error
	Deactivate(ctx context.Context, sessionID uuid.UUID, endedAt time.Time) error
	// DeactivateForUserDevice enforces device exclusivity: at most one active
	// session per (user, device) pair when enabled.
	DeactivateForUserDevice(ctx context.Context, userID uint, deviceID string, endedAt time.Time) (int64, error)
	// DeactivateExpired flips stale rows; external sweep collaborator only.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// SecurityEventRepository appends immutable audit records. There is no update
// or delete; ordering is by creation time.
type SecurityEventRepository interface {
	Insert(ctx context.Context, event domain.SecurityEvent) error
	ListRecent(ctx context.Context, limit, offset int) ([]domain.SecurityEvent, error)
}
