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

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, params ports.CreateUserParams) (domain.User, error) {
	rec := userModel{
		UUID:             params.UUID,
		Username:         params.Username,
		Email:            params.Email,
		PasswordVerifier: params.PasswordVerifier,
		Status:           domain.StatusActive,
		IsAdmin:          params.IsAdmin,
		SecurityLevel:    params.SecurityLevel,
		DeviceLocked:     params.DeviceLocked,
		HardwareInfo:     nullableString(params.HardwareInfo),
		LicenseType:      string(domain.TierStandard),
		CreatedAt:        params.CreatedAt,
		UpdatedAt:        params.CreatedAt,
		LastActivityAt:   params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrDuplicateKey
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uint) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

// RecordLoginFailure runs the counter increment and conditional lockout set
// inside one row-locked transaction so racing failures cannot lose updates.
func (r *userRepository) RecordLoginFailure(ctx context.Context, userID uint, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LoginFailureResult, error) {
	var result ports.LoginFailureResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec userModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", userID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		attempts := rec.FailedLoginAttempts + 1
		updates := map[string]any{
			"failed_login_attempts": attempts,
			"updated_at":            now,
		}
		result = ports.LoginFailureResult{FailedAttempts: attempts, LockoutUntil: rec.LockoutUntil}
		if attempts >= threshold && (rec.LockoutUntil == nil || !rec.LockoutUntil.After(now)) {
			lockoutUntil := now.Add(lockoutWindow)
			updates["lockout_until"] = lockoutUntil
			result.LockoutUntil = &lockoutUntil
			result.LockedNow = true
		}
		return tx.Model(&userModel{}).Where("id = ?", userID).Updates(updates).Error
	})
	if err != nil {
		return ports.LoginFailureResult{}, err
	}
	return result, nil
}

func (r *userRepository) RecordLoginSuccess(ctx context.Context, userID uint, now time.Time, ip string) error {
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).Updates(map[string]any{
		"failed_login_attempts": 0,
		"lockout_until":         nil,
		"last_login_at":         now,
		"last_login_ip":         nullableString(ip),
		"last_activity_at":      now,
		"updated_at":            now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BindDeviceIfUnset uses a conditional update as the race arbiter: only the
// first login through here wins the binding; everyone reads the winner back.
func (r *userRepository) BindDeviceIfUnset(ctx context.Context, userID uint, deviceID string, now time.Time) (string, error) {
	var bound string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).
			Where("id = ? AND registered_device_id IS NULL", userID).
			Updates(map[string]any{
				"registered_device_id": deviceID,
				"updated_at":           now,
			})
		if res.Error != nil {
			return res.Error
		}

		var rec userModel
		if err := tx.Select("registered_device_id").Where("id = ?", userID).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		bound = fromNullable(rec.RegisteredDeviceID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return bound, nil
}

func (r *userRepository) SetLicense(ctx context.Context, userID uint, key string, licenseType domain.LicenseTier, expiresAt *time.Time, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).Updates(map[string]any{
		"license_key":        key,
		"license_type":       string(licenseType),
		"license_expires_at": expiresAt,
		"updated_at":         now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) GrantApplicationRole(ctx context.Context, userID, applicationID uint, role string, now time.Time) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userApplicationRoleModel{}).
			Where("user_id = ? AND application_id = ?", userID, applicationID).
			Updates(map[string]any{"role": role, "granted_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		created = true
		return tx.Create(&userApplicationRoleModel{
			UserID:        userID,
			ApplicationID: applicationID,
			Role:          role,
			GrantedAt:     now,
		}).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *userRepository) ListApplicationRoles(ctx context.Context, userID uint) ([]domain.ApplicationRole, error) {
	var rows []userApplicationRoleModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("granted_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ApplicationRole, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.ApplicationRole{
			UserID:        row.UserID,
			ApplicationID: row.ApplicationID,
			Role:          row.Role,
			GrantedAt:     row.GrantedAt,
		})
	}
	return result, nil
}

func (r *userRepository) Deactivate(ctx context.Context, userID uint, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).Updates(map[string]any{
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

func (r *userRepository) TouchActivity(ctx context.Context, userID uint, now time.Time) error {
	return r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).
		Update("last_activity_at", now).Error
}
