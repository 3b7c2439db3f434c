package application

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

// Security event types emitted on notable transitions.
const (
	EventLoginFailed      = "login_failed"
	EventLockout          = "lockout"
	EventDeviceMismatch   = "device_mismatch"
	EventDeviceBound      = "device_bound"
	EventLicenseAssigned  = "license_assigned"
	EventLicenseActivated = "license_activated"
	EventLicenseRevoked   = "license_revoked"
	EventSessionCreated   = "session_created"
	EventSessionEnded     = "session_ended"
)

// ListSecurityEvents pages through the audit trail, newest first.
func (s *Service) ListSecurityEvents(ctx context.Context, limit, offset int) ([]domain.SecurityEvent, error) {
	if s.auditLog == nil {
		return nil, nil
	}
	return s.auditLog.ListRecent(ctx, limit, offset)
}

// recordEvent hands an audit record to the sink. The sink is best-effort by
// contract, so the primary operation never observes a failure here.
func (s *Service) recordEvent(ctx context.Context, eventType, severity string, userID, applicationID *uint, deviceID, ip, description string, details map[string]any) {
	if s.events == nil {
		return
	}
	var raw []byte
	if len(details) > 0 {
		raw, _ = json.Marshal(details)
	}
	s.events.Record(ctx, domain.SecurityEvent{
		EventID:       uuid.New(),
		EventType:     eventType,
		Severity:      severity,
		UserID:        userID,
		ApplicationID: applicationID,
		DeviceID:      deviceID,
		IPAddress:     ip,
		Description:   description,
		Details:       raw,
		CreatedAt:     s.nowFn(),
	})
}
