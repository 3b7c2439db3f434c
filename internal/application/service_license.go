package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/whiskerauth/whisker-auth/internal/domain"
	"github.com/whiskerauth/whisker-auth/internal/ports"
)

// IssueLicenses mints a batch of licenses in unused state. Keys come from the
// secure generator; the store's uniqueness constraint is the backstop, so no
// collision-retry loop is attempted.
func (s *Service) IssueLicenses(ctx context.Context, req IssueLicensesRequest) ([]IssuedLicense, error) {
	if !req.Type.Known() {
		return nil, fmt.Errorf("%w: unknown license type %q", domain.ErrInvalidInput, req.Type)
	}
	if req.Count <= 0 || req.Count > 1000 {
		return nil, fmt.Errorf("%w: count must be 1-1000", domain.ErrInvalidInput)
	}
	maxApps := req.MaxApplications
	if maxApps <= 0 {
		maxApps = 5
	}
	maxDevices := req.MaxDevices
	if maxDevices <= 0 {
		maxDevices = 1
	}

	now := s.nowFn()
	params := make([]ports.CreateLicenseParams, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		key, err := s.keygen.LicenseKey()
		if err != nil {
			return nil, fmt.Errorf("generate license key: %w", err)
		}
		params = append(params, ports.CreateLicenseParams{
			Key:             key,
			Type:            req.Type,
			MaxApplications: maxApps,
			MaxDevices:      maxDevices,
			ExpiresAt:       req.ExpiresAt,
			CreatedAt:       now,
		})
	}

	created, err := s.licenses.CreateBatch(ctx, params)
	if err != nil {
		return nil, err
	}
	issued := make([]IssuedLicense, 0, len(created))
	for _, lic := range created {
		issued = append(issued, IssuedLicense{
			Key:             lic.Key,
			Type:            lic.Type,
			MaxApplications: lic.MaxApplications,
			MaxDevices:      lic.MaxDevices,
		})
	}
	return issued, nil
}

// AssignLicense binds an unused license to a user. Under the default
// one-license-per-user policy, a user already holding an assigned or active
// license cannot take another.
func (s *Service) AssignLicense(ctx context.Context, key string, userID uint) (domain.License, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.License{}, err
	}

	if !s.cfg.AllowMultipleLicenses {
		held, herr := s.licenses.GetHeldByUser(ctx, userID)
		if herr == nil && held.Key != key {
			return domain.License{}, domain.ErrAlreadyAssigned
		}
		if herr != nil && !errors.Is(herr, domain.ErrNotFound) {
			return domain.License{}, herr
		}
	}

	now := s.nowFn()
	license, err := s.licenses.Assign(ctx, key, userID, user.Username, now)
	if err != nil {
		return domain.License{}, err
	}

	// Denormalized license fields on the user row keep the single-read
	// authentication path cheap.
	if err := s.users.SetLicense(ctx, userID, license.Key, license.Type, license.ExpiresAt, now); err != nil {
		return domain.License{}, err
	}

	s.recordEvent(ctx, EventLicenseAssigned, domain.SeverityInfo, &userID, nil, "", "",
		"license assigned", map[string]any{"license_key": license.Key, "license_type": string(license.Type)})
	return license, nil
}

// ActivateLicense moves an assigned license to active and stamps activated_at.
func (s *Service) ActivateLicense(ctx context.Context, key string) (domain.License, error) {
	license, err := s.licenses.Activate(ctx, key, s.nowFn())
	if err != nil {
		return domain.License{}, err
	}
	s.recordEvent(ctx, EventLicenseActivated, domain.SeverityInfo, license.UserID, nil, "", "",
		"license activated", map[string]any{"license_key": license.Key})
	return license, nil
}

// RevokeLicense is terminal; nothing transitions out of revoked.
func (s *Service) RevokeLicense(ctx context.Context, key string) (domain.License, error) {
	license, err := s.licenses.Revoke(ctx, key, s.nowFn())
	if err != nil {
		return domain.License{}, err
	}
	s.recordEvent(ctx, EventLicenseRevoked, domain.SeverityWarning, license.UserID, nil, "", "",
		"license revoked", map[string]any{"license_key": license.Key})
	return license, nil
}

// CheckQuota counts a distinct application against the license quota.
// Re-checking an already-counted application never increments further; a new
// application beyond max_applications fails with ErrQuotaExceeded.
func (s *Service) CheckQuota(ctx context.Context, key string, applicationID uint) error {
	license, err := s.licenses.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	if license.ExpiredAt(s.nowFn()) {
		return domain.ErrLicenseExpired
	}
	if _, err := s.applications.GetByID(ctx, applicationID); err != nil {
		return err
	}
	return s.licenses.RegisterApplication(ctx, license.ID, applicationID)
}

// RegisterDevice adds a device to the license's registered set, bounded by
// max_devices; re-registering a known device is a no-op.
func (s *Service) RegisterDevice(ctx context.Context, key, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", domain.ErrInvalidInput)
	}
	license, err := s.licenses.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	return s.licenses.RegisterDevice(ctx, license.ID, deviceID)
}

// ListLicenseDevices returns the device identifiers registered on a license.
func (s *Service) ListLicenseDevices(ctx context.Context, key string) ([]string, error) {
	license, err := s.licenses.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.licenses.ListDevices(ctx, license.ID)
}
