package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/whiskerauth/whisker-auth/internal/domain"
	"github.com/whiskerauth/whisker-auth/internal/ports"
)

type licenseRepository struct {
	db *gorm.DB
}

func (r *licenseRepository) CreateBatch(ctx context.Context, params []ports.CreateLicenseParams) ([]domain.License, error) {
	if len(params) == 0 {
		return nil, nil
	}
	rows := make([]licenseModel, 0, len(params))
	for _, p := range params {
		rows = append(rows, licenseModel{
			Key:             p.Key,
			Type:            string(p.Type),
			Status:          string(domain.LicenseUnused),
			ExpiresAt:       p.ExpiresAt,
			MaxApplications: p.MaxApplications,
			MaxDevices:      p.MaxDevices,
			CreatedAt:       p.CreatedAt,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateKey
		}
		return nil, err
	}
	result := make([]domain.License, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainLicense(row))
	}
	return result, nil
}

func (r *licenseRepository) GetByKey(ctx context.Context, key string) (domain.License, error) {
	var rec licenseModel
	if err := r.db.WithContext(ctx).Where("key = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.License{}, domain.ErrNotFound
		}
		return domain.License{}, err
	}
	return toDomainLicense(rec), nil
}

func (r *licenseRepository) GetHeldByUser(ctx context.Context, userID uint) (domain.License, error) {
	var rec licenseModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{
			string(domain.LicenseAssigned), string(domain.LicenseActive),
		}).
		Order("created_at DESC").Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.License{}, domain.ErrNotFound
		}
		return domain.License{}, err
	}
	return toDomainLicense(rec), nil
}

// Assign moves an unused license to assigned under a row lock so two racing
// assignments of the same key cannot both succeed.
func (r *licenseRepository) Assign(ctx context.Context, key string, userID uint, assignedTo string, now time.Time) (domain.License, error) {
	var rec licenseModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if rec.Status != string(domain.LicenseUnused) {
			// Held by someone else is a conflict with that holder; any
			// other non-unused status is an illegal transition.
			if rec.UserID != nil && *rec.UserID != userID {
				return domain.ErrAlreadyAssigned
			}
			return domain.ErrInvalidState
		}
		rec.Status = string(domain.LicenseAssigned)
		rec.UserID = &userID
		rec.AssignedTo = nullableString(assignedTo)
		return tx.Model(&licenseModel{}).Where("id = ?", rec.ID).Updates(map[string]any{
			"status":      rec.Status,
			"user_id":     userID,
			"assigned_to": rec.AssignedTo,
		}).Error
	})
	if err != nil {
		return domain.License{}, err
	}
	return toDomainLicense(rec), nil
}

func (r *licenseRepository) Activate(ctx context.Context, key string, now time.Time) (domain.License, error) {
	var rec licenseModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if rec.Status != string(domain.LicenseAssigned) {
			return domain.ErrInvalidState
		}
		rec.Status = string(domain.LicenseActive)
		rec.ActivatedAt = &now
		return tx.Model(&licenseModel{}).Where("id = ?", rec.ID).Updates(map[string]any{
			"status":       rec.Status,
			"activated_at": now,
		}).Error
	})
	if err != nil {
		return domain.License{}, err
	}
	return toDomainLicense(rec), nil
}

func (r *licenseRepository) Revoke(ctx context.Context, key string, now time.Time) (domain.License, error) {
	var rec licenseModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		switch rec.Status {
		case string(domain.LicenseAssigned), string(domain.LicenseActive):
		default:
			return domain.ErrInvalidState
		}
		rec.Status = string(domain.LicenseRevoked)
		return tx.Model(&licenseModel{}).Where("id = ?", rec.ID).
			Update("status", rec.Status).Error
	})
	if err != nil {
		return domain.License{}, err
	}
	return toDomainLicense(rec), nil
}

// RegisterApplication counts a distinct application against max_applications.
// The license row is locked first so the count-and-insert pair is atomic;
// re-registering an already-counted application returns nil without consuming
// quota.
func (r *licenseRepository) RegisterApplication(ctx context.Context, licenseID, applicationID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec licenseModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", licenseID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&licenseApplicationModel{}).
			Where("license_id = ? AND application_id = ?", licenseID, applicationID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		if rec.UsedApplications >= rec.MaxApplications {
			return domain.ErrQuotaExceeded
		}

		if err := tx.Create(&licenseApplicationModel{
			LicenseID:     licenseID,
			ApplicationID: applicationID,
			RegisteredAt:  time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&licenseModel{}).Where("id = ?", licenseID).
			Update("used_applications", gorm.Expr("used_applications + 1")).Error
	})
}

func (r *licenseRepository) RegisterDevice(ctx context.Context, licenseID uint, deviceID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec licenseModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", licenseID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&licenseDeviceModel{}).
			Where("license_id = ? AND device_id = ?", licenseID, deviceID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		if rec.UsedDevices >= rec.MaxDevices {
			return domain.ErrDeviceLimitExceeded
		}

		if err := tx.Create(&licenseDeviceModel{
			LicenseID:    licenseID,
			DeviceID:     deviceID,
			RegisteredAt: time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&licenseModel{}).Where("id = ?", licenseID).
			Update("used_devices", gorm.Expr("used_devices + 1")).Error
	})
}

func (r *licenseRepository) ListDevices(ctx context.Context, licenseID uint) ([]string, error) {
	var rows []licenseDeviceModel
	if err := r.db.WithContext(ctx).Where("license_id = ?", licenseID).
		Order("registered_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	devices := make([]string, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, row.DeviceID)
	}
	return devices, nil
}

func (r *licenseRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&licenseModel{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?", []string{
			string(domain.LicenseAssigned), string(domain.LicenseActive),
		}, now).
		Update("status", string(domain.LicenseExpired))
	return res.RowsAffected, res.Error
}
