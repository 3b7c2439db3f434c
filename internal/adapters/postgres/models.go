package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	ID                  uint       `gorm:"column:id;primaryKey"`
	UUID                string     `gorm:"column:uuid"`
	Username            string     `gorm:"column:username"`
	Email               string     `gorm:"column:email"`
	PasswordVerifier    string     `gorm:"column:password_verifier"`
	Status              string     `gorm:"column:status"`
	IsAdmin             bool       `gorm:"column:is_admin"`
	SecurityLevel       int        `gorm:"column:security_level"`
	FailedLoginAttempts int        `gorm:"column:failed_login_attempts"`
	LockoutUntil        *time.Time `gorm:"column:lockout_until"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	LastLoginIP         *string    `gorm:"column:last_login_ip"`
	RegisteredDeviceID  *string    `gorm:"column:registered_device_id"`
	HardwareInfo        *string    `gorm:"column:hardware_info"`
	DeviceLocked        bool       `gorm:"column:device_locked"`
	LicenseKey          *string    `gorm:"column:license_key"`
	LicenseType         string     `gorm:"column:license_type"`
	LicenseExpiresAt    *time.Time `gorm:"column:license_expires_at"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
	LastActivityAt      time.Time  `gorm:"column:last_activity_at"`
}

func (userModel) TableName() string { return "users" }

type licenseModel struct {
	ID               uint       `gorm:"column:id;primaryKey"`
	Key              string     `gorm:"column:key"`
	Type             string     `gorm:"column:type"`
	Status           string     `gorm:"column:status"`
	UserID           *uint      `gorm:"column:user_id"`
	AssignedTo       *string    `gorm:"column:assigned_to"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	ActivatedAt      *time.Time `gorm:"column:activated_at"`
	ExpiresAt        *time.Time `gorm:"column:expires_at"`
	MaxApplications  int        `gorm:"column:max_applications"`
	UsedApplications int        `gorm:"column:used_applications"`
	MaxDevices       int        `gorm:"column:max_devices"`
	UsedDevices      int        `gorm:"column:used_devices"`
}

func (licenseModel) TableName() string { return "licenses" }

type licenseApplicationModel struct {
	LicenseID     uint      `gorm:"column:license_id;primaryKey"`
	ApplicationID uint      `gorm:"column:application_id;primaryKey"`
	RegisteredAt  time.Time `gorm:"column:registered_at"`
}

func (licenseApplicationModel) TableName() string { return "license_applications" }

type licenseDeviceModel struct {
	LicenseID    uint      `gorm:"column:license_id;primaryKey"`
	DeviceID     string    `gorm:"column:device_id;primaryKey"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
}

func (licenseDeviceModel) TableName() string { return "license_devices" }

type applicationModel struct {
	ID                  uint      `gorm:"column:id;primaryKey"`
	UUID                string    `gorm:"column:uuid"`
	Name                string    `gorm:"column:name"`
	Description         *string   `gorm:"column:description"`
	CurrentVersion      string    `gorm:"column:current_version"`
	MinimumVersion      string    `gorm:"column:minimum_version"`
	ForceUpdate         bool      `gorm:"column:force_update"`
	Status              string    `gorm:"column:status"`
	MaintenanceMessage  *string   `gorm:"column:maintenance_message"`
	SecretKey           string    `gorm:"column:secret_key"`
	RequiresLicense     bool      `gorm:"column:requires_license"`
	RequiredLicenseType string    `gorm:"column:required_license_type"`
	TotalUsers          int       `gorm:"column:total_users"`
	ActiveSessions      int       `gorm:"column:active_sessions"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (applicationModel) TableName() string { return "applications" }

type userApplicationRoleModel struct {
	UserID        uint      `gorm:"column:user_id;primaryKey"`
	ApplicationID uint      `gorm:"column:application_id;primaryKey"`
	Role          string    `gorm:"column:role"`
	GrantedAt     time.Time `gorm:"column:granted_at"`
}

func (userApplicationRoleModel) TableName() string { return "user_application_roles" }

type sessionModel struct {
	ID              uint      `gorm:"column:id;primaryKey"`
	SessionID       uuid.UUID `gorm:"column:session_id;type:uuid"`
	UserID          uint      `gorm:"column:user_id"`
	ApplicationID   *uint     `gorm:"column:application_id"`
	DeviceID        *string   `gorm:"column:device_id"`
	IPAddress       *string   `gorm:"column:ip_address"`
	UserAgent       *string   `gorm:"column:user_agent"`
	IsActive        bool      `gorm:"column:is_active"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
	AccessTokenHash *string   `gorm:"column:access_token_hash"`
	LastActivityAt  time.Time `gorm:"column:last_activity_at"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type securityEventModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	EventID       uuid.UUID `gorm:"column:event_id;type:uuid"`
	EventType     string    `gorm:"column:event_type"`
	Severity      string    `gorm:"column:severity"`
	UserID        *uint     `gorm:"column:user_id"`
	ApplicationID *uint     `gorm:"column:application_id"`
	DeviceID      *string   `gorm:"column:device_id"`
	IPAddress     *string   `gorm:"column:ip_address"`
	Description   *string   `gorm:"column:description"`
	Details       *string   `gorm:"column:details;type:jsonb"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (securityEventModel) TableName() string { return "security_events" }
