package domain

import "time"

// Application is a registered client application gated by this service.
// The secret key authenticates the application itself, not its users, and is
// surfaced exactly once at provisioning time.
type Application struct {
	ID                  uint
	UUID                string
	Name                string
	Description         string
	CurrentVersion      string
	MinimumVersion      string
	ForceUpdate         bool
	Status              string
	MaintenanceMessage  string
	SecretKey           string
	RequiresLicense     bool
	RequiredLicenseType LicenseTier
	TotalUsers          int
	ActiveSessions      int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Entity statuses for users and applications. Rows are never physically
// removed while referenced; deactivation is a status change.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDisabled  = "disabled"
)
