package application

import (
	"log/slog"
	"time"

	"github.com/whiskerauth/whisker-auth/internal/ports"
)

// Config tunes the authentication and licensing policies.
type Config struct {
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	SessionTTL           time.Duration
	// EnforceDeviceExclusivity keeps at most one active session per
	// (user, device) pair.
	EnforceDeviceExclusivity bool
	// AllowMultipleLicenses permits a user to hold several licenses at once.
	// The default policy is one held license per user.
	AllowMultipleLicenses bool
}

// Service implements the credential, license, session, and audit operations
// exposed to the external API layer. All storage access goes through ports;
// every returned error is a classified domain kind, never a raw storage error
// except genuine I/O failures, which pass through for the caller to retry.
type Service struct {
	cfg          Config
	logger       *slog.Logger
	users        ports.UserRepository
	licenses     ports.LicenseRepository
	applications ports.ApplicationRepository
	sessions     ports.SessionRepository
	revocations  ports.SessionRevocationStore
	events       ports.SecurityEventSink
	auditLog     ports.SecurityEventRepository
	hasher       ports.CredentialHasher
	keygen       ports.KeyGenerator
	tokenSigner  ports.TokenSigner
	nowFn        func() time.Time
}

// Dependencies enumerates everything Service needs; construction fails fast
// on nothing so tests can wire partial fakes.
type Dependencies struct {
	Config       Config
	Logger       *slog.Logger
	Users        ports.UserRepository
	Licenses     ports.LicenseRepository
	Applications ports.ApplicationRepository
	Sessions     ports.SessionRepository
	Revocations  ports.SessionRevocationStore
	Events       ports.SecurityEventSink
	AuditLog     ports.SecurityEventRepository
	Hasher       ports.CredentialHasher
	KeyGen       ports.KeyGenerator
	TokenSigner  ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &Service{
		cfg:          cfg,
		logger:       logger.With("module", "application", "layer", "service"),
		users:        deps.Users,
		licenses:     deps.Licenses,
		applications: deps.Applications,
		sessions:     deps.Sessions,
		revocations:  deps.Revocations,
		events:       deps.Events,
		auditLog:     deps.AuditLog,
		hasher:       deps.Hasher,
		keygen:       deps.KeyGen,
		tokenSigner:  deps.TokenSigner,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}
