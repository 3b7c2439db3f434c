package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/whiskerauth/whisker-auth/internal/domain"
	"github.com/whiskerauth/whisker-auth/internal/ports"
)

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	rec := sessionModel{
		SessionID:       params.SessionID,
		UserID:          params.UserID,
		ApplicationID:   params.ApplicationID,
		DeviceID:        nullableString(params.DeviceID),
		IPAddress:       nullableString(params.IPAddress),
		UserAgent:       nullableString(params.UserAgent),
		IsActive:        true,
		ExpiresAt:       params.ExpiresAt,
		AccessTokenHash: nullableString(params.AccessTokenHash),
		LastActivityAt:  params.CreatedAt,
		CreatedAt:       params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Session{}, domain.ErrDuplicateKey
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]domain.Session, error) {
	var rows []sessionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = TRUE AND expires_at > ?", userID, now).
		Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Session, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainSession(row))
	}
	return result, nil
}

func (r *sessionRepository) TouchActivity(ctx context.Context, sessionID uuid.UUID, touchedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("session_id = ?", sessionID).
		Update("last_activity_at", touchedAt).Error
}

func (r *sessionRepository) Deactivate(ctx context.Context, sessionID uuid.UUID, endedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("session_id = ? AND is_active = TRUE", sessionID).
		Updates(map[string]any{
			"is_active":        false,
			"last_activity_at": endedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) DeactivateForUserDevice(ctx context.Context, userID uint, deviceID string, endedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("user_id = ? AND device_id = ? AND is_active = TRUE", userID, deviceID).
		Updates(map[string]any{
			"is_active":        false,
			"last_activity_at": endedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("is_active = TRUE AND expires_at <= ?", now).
		Updates(map[string]any{
			"is_active":        false,
			"last_activity_at": now,
		})
	return res.RowsAffected, res.Error
}
