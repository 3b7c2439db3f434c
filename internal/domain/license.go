package domain

import "time"

// LicenseTier is the ordered privilege level gating application access.
type LicenseTier string

const (
	TierStandard   LicenseTier = "standard"
	TierPremium    LicenseTier = "premium"
	TierEnterprise LicenseTier = "enterprise"
)

var tierRank = map[LicenseTier]int{
	TierStandard:   1,
	TierPremium:    2,
	TierEnterprise: 3,
}

// Known reports whether the tier is one of the defined privilege levels.
func (t LicenseTier) Known() bool {
	_, ok := tierRank[t]
	return ok
}

// AtLeast reports whether t is equal to or exceeds required in privilege
// ordering (standard < premium < enterprise). Unknown tiers never satisfy
// any requirement.
func (t LicenseTier) AtLeast(required LicenseTier) bool {
	return tierRank[t] >= tierRank[required] && tierRank[t] > 0
}

// LicenseStatus is a state in the license lifecycle machine.
// unused -> assigned -> active -> {expired, revoked}; terminal states absorb.
type LicenseStatus string

const (
	LicenseUnused   LicenseStatus = "unused"
	LicenseAssigned LicenseStatus = "assigned"
	LicenseActive   LicenseStatus = "active"
	LicenseExpired  LicenseStatus = "expired"
	LicenseRevoked  LicenseStatus = "revoked"
)

// Terminal reports whether no transition leaves the status.
func (s LicenseStatus) Terminal() bool {
	return s == LicenseExpired || s == LicenseRevoked
}

// License is a transferable entitlement bound to at most one user, with
// distinct-application and registered-device quotas.
type License struct {
	ID               uint
	Key              string
	Type             LicenseTier
	Status           LicenseStatus
	UserID           *uint
	AssignedTo       string
	CreatedAt        time.Time
	ActivatedAt      *time.Time
	ExpiresAt        *time.Time
	MaxApplications  int
	UsedApplications int
	MaxDevices       int
	UsedDevices      int
}

// ValidAt reports whether the license authorizes access at the given
// instant: status active and not past expiry. A nil expiry never expires.
func (l License) ValidAt(now time.Time) bool {
	if l.Status != LicenseActive {
		return false
	}
	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}

// ExpiredAt reports whether the stored expiry has passed, independent of the
// stored status field.
func (l License) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}
