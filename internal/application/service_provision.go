package application

import (
	"context"
	"fmt"

	"github.com/whiskerauth/whisker-auth/internal/domain"
	"github.com/whiskerauth/whisker-auth/internal/ports"
)

const (
	userUUIDBytes  = 18
	appUUIDBytes   = 18
	appSecretBytes = 32
)

// CreateUser provisions an identity from the administrative layer. The
// plaintext secret is hashed here and never reaches a repository.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (CreateUserResponse, error) {
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return CreateUserResponse{}, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return CreateUserResponse{}, err
	}
	if len(req.Secret) < 8 {
		return CreateUserResponse{}, fmt.Errorf("%w: secret must be at least 8 characters", domain.ErrInvalidInput)
	}

	verifier, err := s.hasher.Hash(req.Secret)
	if err != nil {
		return CreateUserResponse{}, fmt.Errorf("hash secret: %w", err)
	}
	userUUID, err := s.keygen.Secret(userUUIDBytes)
	if err != nil {
		return CreateUserResponse{}, fmt.Errorf("generate user uuid: %w", err)
	}

	securityLevel := req.SecurityLevel
	if securityLevel <= 0 {
		securityLevel = 1
	}

	user, err := s.users.Create(ctx, ports.CreateUserParams{
		UUID:             userUUID,
		Username:         username,
		Email:            email,
		PasswordVerifier: verifier,
		IsAdmin:          req.IsAdmin,
		SecurityLevel:    securityLevel,
		DeviceLocked:     req.DeviceLocked,
		HardwareInfo:     req.HardwareInfo,
		CreatedAt:        s.nowFn(),
	})
	if err != nil {
		return CreateUserResponse{}, err
	}
	return CreateUserResponse{UserID: user.ID, UserUUID: user.UUID}, nil
}

// CreateApplication registers a client application. The generated secret key
// is returned exactly once and never re-displayed.
func (s *Service) CreateApplication(ctx context.Context, req CreateApplicationRequest) (CreateApplicationResponse, error) {
	if req.Name == "" {
		return CreateApplicationResponse{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	requiredType := req.RequiredLicenseType
	if req.RequiresLicense && !requiredType.Known() {
		requiredType = domain.TierStandard
	}

	appUUID, err := s.keygen.Secret(appUUIDBytes)
	if err != nil {
		return CreateApplicationResponse{}, fmt.Errorf("generate application uuid: %w", err)
	}
	secret, err := s.keygen.Secret(appSecretBytes)
	if err != nil {
		return CreateApplicationResponse{}, fmt.Errorf("generate application secret: %w", err)
	}

	currentVersion := req.CurrentVersion
	if currentVersion == "" {
		currentVersion = "1.0.0"
	}
	minimumVersion := req.MinimumVersion
	if minimumVersion == "" {
		minimumVersion = currentVersion
	}

	app, err := s.applications.Create(ctx, ports.CreateApplicationParams{
		UUID:                appUUID,
		Name:                req.Name,
		Description:         req.Description,
		CurrentVersion:      currentVersion,
		MinimumVersion:      minimumVersion,
		SecretKey:           secret,
		RequiresLicense:     req.RequiresLicense,
		RequiredLicenseType: requiredType,
		CreatedAt:           s.nowFn(),
	})
	if err != nil {
		return CreateApplicationResponse{}, err
	}
	return CreateApplicationResponse{
		ApplicationID: app.ID,
		AppUUID:       app.UUID,
		SecretKey:     secret,
	}, nil
}

// GrantApplicationRole records a user's role within an application as a
// join row. Re-granting updates the role in place.
func (s *Service) GrantApplicationRole(ctx context.Context, userID, applicationID uint, role string) error {
	if role == "" {
		return fmt.Errorf("%w: role is required", domain.ErrInvalidInput)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.applications.GetByID(ctx, applicationID); err != nil {
		return err
	}
	now := s.nowFn()
	created, err := s.users.GrantApplicationRole(ctx, userID, applicationID, role, now)
	if err != nil {
		return err
	}
	if created {
		if err := s.applications.IncrementTotalUsers(ctx, applicationID, now); err != nil {
			s.logger.WarnContext(ctx, "total users counter update failed",
				"operation", "grant_application_role", "outcome", "failure", "application_id", applicationID, "error", err)
		}
	}
	return nil
}

// ListUserRoles returns the user's application role grants.
func (s *Service) ListUserRoles(ctx context.Context, userID uint) ([]domain.ApplicationRole, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.users.ListApplicationRoles(ctx, userID)
}

// DeactivateUser disables the account. Rows are never deleted; existing
// sessions die on their next validation because the status gate runs first.
func (s *Service) DeactivateUser(ctx context.Context, userID uint) error {
	return s.users.Deactivate(ctx, userID, s.nowFn())
}

// DeactivateApplication disables a registered client application.
func (s *Service) DeactivateApplication(ctx context.Context, applicationID uint) error {
	return s.applications.Deactivate(ctx, applicationID, s.nowFn())
}
