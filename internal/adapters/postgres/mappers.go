package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		ID:                  row.ID,
		UUID:                row.UUID,
		Username:            row.Username,
		Email:               row.Email,
		PasswordVerifier:    row.PasswordVerifier,
		Status:              row.Status,
		IsAdmin:             row.IsAdmin,
		SecurityLevel:       row.SecurityLevel,
		FailedLoginAttempts: row.FailedLoginAttempts,
		LockoutUntil:        row.LockoutUntil,
		LastLoginAt:         row.LastLoginAt,
		LastLoginIP:         fromNullable(row.LastLoginIP),
		RegisteredDeviceID:  fromNullable(row.RegisteredDeviceID),
		HardwareInfo:        fromNullable(row.HardwareInfo),
		DeviceLocked:        row.DeviceLocked,
		LicenseKey:          fromNullable(row.LicenseKey),
		LicenseType:         domain.LicenseTier(row.LicenseType),
		LicenseExpiresAt:    row.LicenseExpiresAt,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
		LastActivityAt:      row.LastActivityAt,
	}
}

func toDomainLicense(row licenseModel) domain.License {
	return domain.License{
		ID:               row.ID,
		Key:              row.Key,
		Type:             domain.LicenseTier(row.Type),
		Status:           domain.LicenseStatus(row.Status),
		UserID:           row.UserID,
		AssignedTo:       fromNullable(row.AssignedTo),
		CreatedAt:        row.CreatedAt,
		ActivatedAt:      row.ActivatedAt,
		ExpiresAt:        row.ExpiresAt,
		MaxApplications:  row.MaxApplications,
		UsedApplications: row.UsedApplications,
		MaxDevices:       row.MaxDevices,
		UsedDevices:      row.UsedDevices,
	}
}

func toDomainApplication(row applicationModel) domain.Application {
	return domain.Application{
		ID:                  row.ID,
		UUID:                row.UUID,
		Name:                row.Name,
		Description:         fromNullable(row.Description),
		CurrentVersion:      row.CurrentVersion,
		MinimumVersion:      row.MinimumVersion,
		ForceUpdate:         row.ForceUpdate,
		Status:              row.Status,
		MaintenanceMessage:  fromNullable(row.MaintenanceMessage),
		SecretKey:           row.SecretKey,
		RequiresLicense:     row.RequiresLicense,
		RequiredLicenseType: domain.LicenseTier(row.RequiredLicenseType),
		TotalUsers:          row.TotalUsers,
		ActiveSessions:      row.ActiveSessions,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	return domain.Session{
		ID:              row.ID,
		SessionID:       row.SessionID,
		UserID:          row.UserID,
		ApplicationID:   row.ApplicationID,
		DeviceID:        fromNullable(row.DeviceID),
		IPAddress:       fromNullable(row.IPAddress),
		UserAgent:       fromNullable(row.UserAgent),
		IsActive:        row.IsActive,
		ExpiresAt:       row.ExpiresAt,
		AccessTokenHash: fromNullable(row.AccessTokenHash),
		LastActivityAt:  row.LastActivityAt,
		CreatedAt:       row.CreatedAt,
	}
}

func toDomainSecurityEvent(row securityEventModel) domain.SecurityEvent {
	var details []byte
	if row.Details != nil {
		details = []byte(*row.Details)
	}
	return domain.SecurityEvent{
		ID:            row.ID,
		EventID:       row.EventID,
		EventType:     row.EventType,
		Severity:      row.Severity,
		UserID:        row.UserID,
		ApplicationID: row.ApplicationID,
		DeviceID:      fromNullable(row.DeviceID),
		IPAddress:     fromNullable(row.IPAddress),
		Description:   fromNullable(row.Description),
		Details:       details,
		CreatedAt:     row.CreatedAt,
	}
}

func fromNullable(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
