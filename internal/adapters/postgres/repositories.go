package postgres

import (
	"gorm.io/gorm"

	"github.com/whiskerauth/whisker-auth/internal/ports"
)

// Repositories bundles the per-aggregate repositories over one GORM handle.
type Repositories struct {
	Users        ports.UserRepository
	Licenses     ports.LicenseRepository
	Applications ports.ApplicationRepository
	Sessions     ports.SessionRepository
	Events       ports.SecurityEventRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:        &userRepository{db: db},
		Licenses:     &licenseRepository{db: db},
		Applications: &applicationRepository{db: db},
		Sessions:     &sessionRepository{db: db},
		Events:       &securityEventRepository{db: db},
	}
}
