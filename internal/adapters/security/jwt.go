package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/ports"
)

// JWTSigner implements HS256 access-token signing for sessions. The key is
// held at adapter level so the application layer stays crypto-library
// agnostic; only the token hash lands on the session row.
type JWTSigner struct {
	secret []byte
}

type sessionClaims struct {
	UserID    uint   `json:"uid"`
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	IsAdmin   bool   `json:"admin"`
	jwt.RegisteredClaims
}

func NewJWTSigner(secret string) (*JWTSigner, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	return &JWTSigner{secret: []byte(secret)}, nil
}

func (s *JWTSigner) Sign(claims ports.SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		SessionID: claims.SessionID.String(),
		IsAdmin:   claims.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(s.secret)
}

func (s *JWTSigner) ParseAndValidate(raw string) (ports.SessionClaims, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return ports.SessionClaims{}, err
	}
	if !token.Valid {
		return ports.SessionClaims{}, errors.New("invalid token")
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return ports.SessionClaims{}, fmt.Errorf("parse session id claim: %w", err)
	}

	out := ports.SessionClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		SessionID: sessionID,
		IsAdmin:   claims.IsAdmin,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if out.ExpiresAt.IsZero() || !out.ExpiresAt.After(time.Now().UTC()) {
		return ports.SessionClaims{}, errors.New("token expired")
	}
	return out, nil
}
