package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether the stored verifier or the supplied secret failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLockedOut rejects authentication during the lockout window
	// regardless of credential correctness.
	ErrLockedOut = errors.New("account locked out")
	// ErrDeviceMismatch is returned when a device-locked account authenticates
	// from a device other than the registered one.
	ErrDeviceMismatch = errors.New("device mismatch")
	// ErrAlreadyAssigned is returned when a license is already bound to a different user.
	ErrAlreadyAssigned = errors.New("license already assigned")
	// ErrInvalidState is returned on an illegal license state transition.
	ErrInvalidState = errors.New("invalid license state transition")
	// ErrQuotaExceeded is returned when a license would exceed its distinct-application quota.
	ErrQuotaExceeded = errors.New("application quota exceeded")
	// ErrDeviceLimitExceeded is returned when a license would exceed its registered-device limit.
	ErrDeviceLimitExceeded = errors.New("device limit exceeded")
	// ErrLicenseRequired is returned when an application demands a license and
	// the user holds no active one.
	ErrLicenseRequired = errors.New("license required")
	// ErrLicenseExpired is returned when the stored status is active but the
	// expiry has passed. Expiry is checked on every authorization decision,
	// not only by background sweeps.
	ErrLicenseExpired = errors.New("license expired")
	// ErrInsufficientLicenseTier is returned when the held tier is below the
	// application's required tier.
	ErrInsufficientLicenseTier = errors.New("insufficient license tier")
	// ErrDuplicateKey surfaces a uniqueness violation from the store.
	ErrDuplicateKey = errors.New("duplicate key")

	ErrSessionExpired = errors.New("session expired")
	ErrSessionRevoked = errors.New("session revoked")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")
)
