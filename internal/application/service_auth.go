package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

// Authenticate verifies a credential attempt with lockout and device-binding
// enforcement. The lockout check runs before any hash comparison so a locked
// account does not leak credential-validity timing. Device-lock rejection also
// precedes the comparison: a mismatched device fails regardless of credential
// correctness and must not advance the failure counter or last-login fields.
func (s *Service) Authenticate(ctx context.Context, req AuthenticateRequest) (AuthenticateResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Secret == "" {
		return AuthenticateResponse{}, fmt.Errorf("%w: username and secret are required", domain.ErrInvalidInput)
	}
	deviceID := strings.TrimSpace(req.DeviceID)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return AuthenticateResponse{}, err
	}
	if user.Status != domain.StatusActive {
		return AuthenticateResponse{}, domain.ErrUnauthorized
	}

	now := s.nowFn()
	if user.LockedOutAt(now) {
		return AuthenticateResponse{}, domain.ErrLockedOut
	}

	if user.DeviceLocked && user.RegisteredDeviceID != "" && deviceID != user.RegisteredDeviceID {
		s.recordEvent(ctx, EventDeviceMismatch, domain.SeverityWarning, &user.ID, nil, deviceID, req.IPAddress,
			"authentication from unregistered device on a device-locked account", map[string]any{
				"registered_device_id": user.RegisteredDeviceID,
			})
		return AuthenticateResponse{}, domain.ErrDeviceMismatch
	}

	if !s.hasher.Verify(req.Secret, user.PasswordVerifier) {
		result, ferr := s.users.RecordLoginFailure(ctx, user.ID, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		if ferr != nil {
			s.logger.ErrorContext(ctx, "failed-login accounting failed",
				"operation", "authenticate", "outcome", "failure", "user_id", user.ID, "error", ferr)
		}
		var details map[string]any
		if ferr == nil {
			details = map[string]any{"failed_attempts": result.FailedAttempts}
		}
		s.recordEvent(ctx, EventLoginFailed, domain.SeverityInfo, &user.ID, nil, deviceID, req.IPAddress,
			"credential verification failed", details)
		if result.LockedNow {
			s.recordEvent(ctx, EventLockout, domain.SeverityWarning, &user.ID, nil, deviceID, req.IPAddress,
				"account locked out after repeated failed logins", map[string]any{
					"failed_attempts": result.FailedAttempts,
					"lockout_until":   result.LockoutUntil,
				})
		}
		return AuthenticateResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, now, req.IPAddress); err != nil {
		return AuthenticateResponse{}, err
	}

	boundDevice := user.RegisteredDeviceID
	boundNow := false
	if boundDevice == "" && deviceID != "" {
		// First-device-wins: the conditional update decides the winner when
		// two first logins race; both callers see the winning identifier.
		boundDevice, err = s.users.BindDeviceIfUnset(ctx, user.ID, deviceID, now)
		if err != nil {
			return AuthenticateResponse{}, err
		}
		boundNow = boundDevice == deviceID
		if boundNow {
			s.recordEvent(ctx, EventDeviceBound, domain.SeverityInfo, &user.ID, nil, deviceID, req.IPAddress,
				"device bound on first successful login", nil)
		} else if user.DeviceLocked {
			// Lost the race against another device on a locked account.
			s.recordEvent(ctx, EventDeviceMismatch, domain.SeverityWarning, &user.ID, nil, deviceID, req.IPAddress,
				"authentication from unregistered device on a device-locked account", map[string]any{
					"registered_device_id": boundDevice,
				})
			return AuthenticateResponse{}, domain.ErrDeviceMismatch
		}
	}

	return AuthenticateResponse{
		UserID:      user.ID,
		UserUUID:    user.UUID,
		Username:    user.Username,
		IsAdmin:     user.IsAdmin,
		DeviceID:    boundDevice,
		DeviceBound: boundNow,
	}, nil
}
