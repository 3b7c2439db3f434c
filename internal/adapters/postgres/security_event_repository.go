package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

type securityEventRepository struct {
	db *gorm.DB
}

func (r *securityEventRepository) Insert(ctx context.Context, event domain.SecurityEvent) error {
	rec := securityEventModel{
		EventID:       event.EventID,
		EventType:     event.EventType,
		Severity:      event.Severity,
		UserID:        event.UserID,
		ApplicationID: event.ApplicationID,
		DeviceID:      nullableString(event.DeviceID),
		IPAddress:     nullableString(event.IPAddress),
		Description:   nullableString(event.Description),
		CreatedAt:     event.CreatedAt,
	}
	if len(event.Details) > 0 {
		details := string(event.Details)
		rec.Details = &details
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *securityEventRepository) ListRecent(ctx context.Context, limit, offset int) ([]domain.SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []securityEventModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.SecurityEvent, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainSecurityEvent(row))
	}
	return result, nil
}
