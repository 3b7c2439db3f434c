package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/whiskerauth/whisker-auth/internal/domain"
	"github.com/whiskerauth/whisker-auth/internal/ports"
)

type applicationRepository struct {
	db *gorm.DB
}

func (r *applicationRepository) Create(ctx context.Context, params ports.CreateApplicationParams) (domain.Application, error) {
	rec := applicationModel{
		UUID:                params.UUID,
		Name:                params.Name,
		Description:         nullableString(params.Description),
		CurrentVersion:      params.CurrentVersion,
		MinimumVersion:      params.MinimumVersion,
		Status:              domain.StatusActive,
		SecretKey:           params.SecretKey,
		RequiresLicense:     params.RequiresLicense,
		RequiredLicenseType: string(params.RequiredLicenseType),
		CreatedAt:           params.CreatedAt,
		UpdatedAt:           params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Application{}, domain.ErrDuplicateKey
		}
		return domain.Application{}, err
	}
	return toDomainApplication(rec), nil
}

func (r *applicationRepository) GetByID(ctx context.Context, applicationID uint) (domain.Application, error) {
	var rec applicationModel
	if err := r.db.WithContext(ctx).Where("id = ?", applicationID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, err
	}
	return toDomainApplication(rec), nil
}

func (r *applicationRepository) GetByUUID(ctx context.Context, appUUID string) (domain.Application, error) {
	var rec applicationModel
	if err := r.db.WithContext(ctx).Where("uuid = ?", appUUID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, err
	}
	return toDomainApplication(rec), nil
}

// AdjustSessionCount applies the delta in the database so concurrent session
// churn never loses an update. Decrements clamp at zero.
func (r *applicationRepository) AdjustSessionCount(ctx context.Context, applicationID uint, delta int, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&applicationModel{}).Where("id = ?", applicationID).Updates(map[string]any{
		"active_sessions": gorm.Expr("GREATEST(0, active_sessions + ?)", delta),
		"updated_at":      now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *applicationRepository) IncrementTotalUsers(ctx context.Context, applicationID uint, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&applicationModel{}).Where("id = ?", applicationID).Updates(map[string]any{
		"total_users": gorm.Expr("total_users + 1"),
		"updated_at":  now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *applicationRepository) Deactivate(ctx context.Context, applicationID uint, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&applicationModel{}).Where("id = ?", applicationID).Updates(map[string]any{
		"status":     domain.StatusDisabled,
		"updated_at": now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
