package application

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/domain"
	"github.com/whiskerauth/whisker-auth/internal/ports"
)

func claimsFor(user domain.User, sessionID uuid.UUID, issuedAt, expiresAt time.Time) ports.SessionClaims {
	return ports.SessionClaims{
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: sessionID,
		IsAdmin:   user.IsAdmin,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
}

func sessionCreateParams(sessionID uuid.UUID, userID uint, applicationID *uint, req CreateSessionRequest, tokenHash string, expiresAt, now time.Time) ports.SessionCreateParams {
	return ports.SessionCreateParams{
		SessionID:       sessionID,
		UserID:          userID,
		ApplicationID:   applicationID,
		DeviceID:        req.DeviceID,
		IPAddress:       req.IPAddress,
		UserAgent:       req.UserAgent,
		AccessTokenHash: tokenHash,
		ExpiresAt:       expiresAt,
		CreatedAt:       now,
	}
}

// normalizeEmail lower-cases and validates an address without accepting
// display names.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return email, nil
}

// normalizeUsername enforces the immutable-identifier shape for usernames.
func normalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if len(username) < 3 || len(username) > 64 {
		return "", fmt.Errorf("%w: username must be 3-64 characters", domain.ErrInvalidInput)
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return "", fmt.Errorf("%w: username has invalid characters", domain.ErrInvalidInput)
		}
	}
	return username, nil
}
