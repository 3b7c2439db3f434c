package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

// CreateSession opens a session for an authenticated user against an
// application. When the application requires a license, the user's held
// license must be active, non-expired at this instant, and of sufficient
// tier; the session's application and device are then counted against the
// license quotas.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResponse, error) {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return CreateSessionResponse{}, err
	}
	if user.Status != domain.StatusActive {
		return CreateSessionResponse{}, domain.ErrUnauthorized
	}
	app, err := s.applications.GetByID(ctx, req.ApplicationID)
	if err != nil {
		return CreateSessionResponse{}, err
	}
	if app.Status != domain.StatusActive {
		return CreateSessionResponse{}, domain.ErrUnauthorized
	}

	now := s.nowFn()
	if app.RequiresLicense {
		license, lerr := s.licenses.GetHeldByUser(ctx, user.ID)
		if lerr != nil {
			if errors.Is(lerr, domain.ErrNotFound) {
				return CreateSessionResponse{}, domain.ErrLicenseRequired
			}
			return CreateSessionResponse{}, lerr
		}
		// Expiry is evaluated live, never deferred to a sweep.
		if license.ExpiredAt(now) {
			return CreateSessionResponse{}, domain.ErrLicenseExpired
		}
		if license.Status != domain.LicenseActive {
			return CreateSessionResponse{}, domain.ErrLicenseRequired
		}
		if !license.Type.AtLeast(app.RequiredLicenseType) {
			return CreateSessionResponse{}, domain.ErrInsufficientLicenseTier
		}
		if err := s.licenses.RegisterApplication(ctx, license.ID, app.ID); err != nil {
			return CreateSessionResponse{}, err
		}
		if req.DeviceID != "" {
			if err := s.licenses.RegisterDevice(ctx, license.ID, req.DeviceID); err != nil {
				return CreateSessionResponse{}, err
			}
		}
	}

	if s.cfg.EnforceDeviceExclusivity && req.DeviceID != "" {
		if _, err := s.sessions.DeactivateForUserDevice(ctx, user.ID, req.DeviceID, now); err != nil {
			return CreateSessionResponse{}, err
		}
	}

	sessionID := uuid.New()
	expiresAt := now.Add(s.cfg.SessionTTL)
	token, err := s.tokenSigner.Sign(claimsFor(user, sessionID, now, expiresAt))
	if err != nil {
		return CreateSessionResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	appID := app.ID
	_, err = s.sessions.Create(ctx, sessionCreateParams(sessionID, user.ID, &appID, req, hashToken(token), expiresAt, now))
	if err != nil {
		return CreateSessionResponse{}, err
	}

	if err := s.applications.AdjustSessionCount(ctx, app.ID, 1, now); err != nil {
		s.logger.WarnContext(ctx, "session counter update failed",
			"operation", "create_session", "outcome", "failure", "application_id", app.ID, "error", err)
	}
	_ = s.users.TouchActivity(ctx, user.ID, now)

	s.recordEvent(ctx, EventSessionCreated, domain.SeverityInfo, &user.ID, &appID, req.DeviceID, req.IPAddress,
		"session created", map[string]any{"session_id": sessionID.String()})

	return CreateSessionResponse{
		SessionID:   sessionID,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// EndSession deactivates the session row and marks the revocation cache so
// already-issued tokens die immediately.
func (s *Service) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	now := s.nowFn()
	if err := s.sessions.Deactivate(ctx, sessionID, now); err != nil {
		return err
	}
	if s.revocations != nil {
		_ = s.revocations.MarkRevoked(ctx, sessionID, session.ExpiresAt)
	}
	if session.ApplicationID != nil {
		if err := s.applications.AdjustSessionCount(ctx, *session.ApplicationID, -1, now); err != nil {
			s.logger.WarnContext(ctx, "session counter update failed",
				"operation", "end_session", "outcome", "failure", "application_id", *session.ApplicationID, "error", err)
		}
	}
	s.recordEvent(ctx, EventSessionEnded, domain.SeverityInfo, &session.UserID, session.ApplicationID,
		session.DeviceID, session.IPAddress, "session ended", nil)
	return nil
}

// ValidateSession checks a presented access token against the stored session.
// Expiry is evaluated lazily here: a session past expires_at is rejected even
// when is_active has not been flipped by any sweep.
func (s *Service) ValidateSession(ctx context.Context, token string) (ValidateSessionResponse, error) {
	claims, err := s.tokenSigner.ParseAndValidate(token)
	if err != nil {
		return ValidateSessionResponse{}, domain.ErrUnauthorized
	}
	session, err := s.sessions.GetBySessionID(ctx, claims.SessionID)
	if err != nil {
		return ValidateSessionResponse{}, domain.ErrUnauthorized
	}
	if session.AccessTokenHash != hashToken(token) {
		return ValidateSessionResponse{}, domain.ErrUnauthorized
	}

	now := s.nowFn()
	if !session.IsActive {
		return ValidateSessionResponse{}, domain.ErrSessionRevoked
	}
	if !session.ExpiresAt.After(now) {
		return ValidateSessionResponse{}, domain.ErrSessionExpired
	}
	if s.revocations != nil {
		if revoked, _ := s.revocations.IsRevoked(ctx, claims.SessionID); revoked {
			return ValidateSessionResponse{}, domain.ErrSessionRevoked
		}
	}
	// A deactivated account invalidates its outstanding sessions immediately.
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || user.Status != domain.StatusActive {
		return ValidateSessionResponse{}, domain.ErrUnauthorized
	}

	_ = s.sessions.TouchActivity(ctx, claims.SessionID, now)
	return ValidateSessionResponse{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		Username:  claims.Username,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// ListActiveSessions returns the user's live sessions, applying the lazy
// expiry rule at read time.
func (s *Service) ListActiveSessions(ctx context.Context, userID uint) ([]domain.Session, error) {
	return s.sessions.ListActiveByUser(ctx, userID, s.nowFn())
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
