package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/domain"
	"github.com/whiskerauth/whisker-auth/internal/ports"
)

type fixture struct {
	service      *Service
	users        *fakeUsers
	licenses     *fakeLicenses
	applications *fakeApplications
	sessions     *fakeSessions
	revocations  *fakeRevocations
	events       *fakeEventSink
	signer       *fakeSigner

	mu  sync.Mutex
	now time.Time
}

func newFixture() *fixture {
	return newFixtureWithConfig(Config{
		FailedLoginThreshold: 5,
		LockoutDuration:      30 * time.Minute,
		SessionTTL:           24 * time.Hour,
	})
}

func newFixtureWithConfig(cfg Config) *fixture {
	f := &fixture{
		users:        newFakeUsers(),
		licenses:     newFakeLicenses(),
		applications: newFakeApplications(),
		sessions:     newFakeSessions(),
		revocations:  &fakeRevocations{revoked: map[uuid.UUID]bool{}},
		events:       &fakeEventSink{},
		signer:       &fakeSigner{tokens: map[string]ports.SessionClaims{}},
		now:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	f.service = NewService(Dependencies{
		Config:       cfg,
		Users:        f.users,
		Licenses:     f.licenses,
		Applications: f.applications,
		Sessions:     f.sessions,
		Revocations:  f.revocations,
		Events:       f.events,
		Hasher:       &fakeHasher{},
		KeyGen:       &fakeKeyGen{},
		TokenSigner:  f.signer,
	})
	f.service.nowFn = f.clock
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// seedUser inserts a user directly, bypassing provisioning validation.
func (f *fixture) seedUser(user domain.User) domain.User {
	return f.users.seed(user)
}

func (f *fixture) seedLicense(lic domain.License) domain.License {
	return f.licenses.seed(lic)
}

func (f *fixture) seedApplication(app domain.Application) domain.Application {
	return f.applications.seed(app)
}

type fakeHasher struct{}

func (fakeHasher) Hash(secret string) (string, error) { return "hashed:" + secret, nil }

func (fakeHasher) Verify(secret, verifier string) bool { return verifier == "hashed:"+secret }

type fakeKeyGen struct {
	mu sync.Mutex
	n  int
}

func (g *fakeKeyGen) LicenseKey() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%064X", g.n), nil
}

func (g *fakeKeyGen) Secret(bytes int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%0*x", bytes*2, g.n), nil
}

type fakeSigner struct {
	mu     sync.Mutex
	n      int
	tokens map[string]ports.SessionClaims
}

func (s *fakeSigner) Sign(claims ports.SessionClaims) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	token := fmt.Sprintf("token-%d", s.n)
	s.tokens[token] = claims
	return token, nil
}

func (s *fakeSigner) ParseAndValidate(token string) (ports.SessionClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claims, ok := s.tokens[token]
	if !ok {
		return ports.SessionClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]domain.User
	roles  map[uint][]domain.ApplicationRole
	// failureAccountingErr makes RecordLoginFailure fail without touching
	// state, for exercising degraded accounting paths.
	failureAccountingErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint]domain.User{}, roles: map[uint][]domain.ApplicationRole{}}
}

func (f *fakeUsers) seed(user domain.User) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == 0 {
		f.nextID++
		user.ID = f.nextID
	} else if user.ID > f.nextID {
		f.nextID = user.ID
	}
	if user.Status == "" {
		user.Status = domain.StatusActive
	}
	f.byID[user.ID] = user
	return user
}

func (f *fakeUsers) get(id uint) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUsers) Create(_ context.Context, params ports.CreateUserParams) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == params.Username || u.Email == params.Email {
			return domain.User{}, domain.ErrDuplicateKey
		}
	}
	f.nextID++
	user := domain.User{
		ID:               f.nextID,
		UUID:             params.UUID,
		Username:         params.Username,
		Email:            params.Email,
		PasswordVerifier: params.PasswordVerifier,
		Status:           domain.StatusActive,
		IsAdmin:          params.IsAdmin,
		SecurityLevel:    params.SecurityLevel,
		DeviceLocked:     params.DeviceLocked,
		HardwareInfo:     params.HardwareInfo,
		LicenseType:      domain.TierStandard,
		CreatedAt:        params.CreatedAt,
	}
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, userID uint) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) RecordLoginFailure(_ context.Context, userID uint, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LoginFailureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failureAccountingErr != nil {
		return ports.LoginFailureResult{}, f.failureAccountingErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return ports.LoginFailureResult{}, domain.ErrNotFound
	}
	u.FailedLoginAttempts++
	result := ports.LoginFailureResult{FailedAttempts: u.FailedLoginAttempts, LockoutUntil: u.LockoutUntil}
	if u.FailedLoginAttempts >= threshold && (u.LockoutUntil == nil || !u.LockoutUntil.After(now)) {
		until := now.Add(lockoutWindow)
		u.LockoutUntil = &until
		result.LockoutUntil = &until
		result.LockedNow = true
	}
	f.byID[userID] = u
	return result, nil
}

func (f *fakeUsers) RecordLoginSuccess(_ context.Context, userID uint, now time.Time, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockoutUntil = nil
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	f.byID[userID] = u
	return nil
}

func (f *fakeUsers) BindDeviceIfUnset(_ context.Context, userID uint, deviceID string, _ time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	if u.RegisteredDeviceID == "" {
		u.RegisteredDeviceID = deviceID
		f.byID[userID] = u
	}
	return f.byID[userID].RegisteredDeviceID, nil
}

func (f *fakeUsers) SetLicense(_ context.Context, userID uint, key string, licenseType domain.LicenseTier, expiresAt *time.Time, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.LicenseKey = key
	u.LicenseType = licenseType
	u.LicenseExpiresAt = expiresAt
	f.byID[userID] = u
	return nil
}

func (f *fakeUsers) GrantApplicationRole(_ context.Context, userID, applicationID uint, role string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.roles[userID] {
		if r.ApplicationID == applicationID {
			f.roles[userID][i].Role = role
			return false, nil
		}
	}
	f.roles[userID] = append(f.roles[userID], domain.ApplicationRole{
		UserID:        userID,
		ApplicationID: applicationID,
		Role:          role,
		GrantedAt:     now,
	})
	return true, nil
}

func (f *fakeUsers) ListApplicationRoles(_ context.Context, userID uint) ([]domain.ApplicationRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ApplicationRole(nil), f.roles[userID]...), nil
}

func (f *fakeUsers) Deactivate(_ context.Context, userID uint, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Status = domain.StatusDisabled
	f.byID[userID] = u
	return nil
}

func (f *fakeUsers) TouchActivity(_ context.Context, _ uint, _ time.Time) error { return nil }

type fakeLicenses struct {
	mu      sync.Mutex
	nextID  uint
	byKey   map[string]domain.License
	apps    map[uint]map[uint]bool
	devices map[uint]map[string]bool
}

func newFakeLicenses() *fakeLicenses {
	return &fakeLicenses{
		byKey:   map[string]domain.License{},
		apps:    map[uint]map[uint]bool{},
		devices: map[uint]map[string]bool{},
	}
}

func (f *fakeLicenses) seed(lic domain.License) domain.License {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lic.ID == 0 {
		f.nextID++
		lic.ID = f.nextID
	}
	if lic.Status == "" {
		lic.Status = domain.LicenseUnused
	}
	f.byKey[lic.Key] = lic
	return lic
}

func (f *fakeLicenses) get(key string) domain.License {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byKey[key]
}

func (f *fakeLicenses) CreateBatch(_ context.Context, params []ports.CreateLicenseParams) ([]domain.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	created := make([]domain.License, 0, len(params))
	for _, p := range params {
		if _, exists := f.byKey[p.Key]; exists {
			return nil, domain.ErrDuplicateKey
		}
		f.nextID++
		lic := domain.License{
			ID:              f.nextID,
			Key:             p.Key,
			Type:            p.Type,
			Status:          domain.LicenseUnused,
			ExpiresAt:       p.ExpiresAt,
			MaxApplications: p.MaxApplications,
			MaxDevices:      p.MaxDevices,
			CreatedAt:       p.CreatedAt,
		}
		f.byKey[p.Key] = lic
		created = append(created, lic)
	}
	return created, nil
}

func (f *fakeLicenses) GetByKey(_ context.Context, key string) (domain.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, ok := f.byKey[key]
	if !ok {
		return domain.License{}, domain.ErrNotFound
	}
	return lic, nil
}

func (f *fakeLicenses) GetHeldByUser(_ context.Context, userID uint) (domain.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lic := range f.byKey {
		if lic.UserID != nil && *lic.UserID == userID &&
			(lic.Status == domain.LicenseAssigned || lic.Status == domain.LicenseActive) {
			return lic, nil
		}
	}
	return domain.License{}, domain.ErrNotFound
}

func (f *fakeLicenses) Assign(_ context.Context, key string, userID uint, assignedTo string, _ time.Time) (domain.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, ok := f.byKey[key]
	if !ok {
		return domain.License{}, domain.ErrNotFound
	}
	if lic.Status != domain.LicenseUnused {
		if lic.UserID != nil && *lic.UserID != userID {
			return domain.License{}, domain.ErrAlreadyAssigned
		}
		return domain.License{}, domain.ErrInvalidState
	}
	lic.Status = domain.LicenseAssigned
	lic.UserID = &userID
	lic.AssignedTo = assignedTo
	f.byKey[key] = lic
	return lic, nil
}

func (f *fakeLicenses) Activate(_ context.Context, key string, now time.Time) (domain.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, ok := f.byKey[key]
	if !ok {
		return domain.License{}, domain.ErrNotFound
	}
	if lic.Status != domain.LicenseAssigned {
		return domain.License{}, domain.ErrInvalidState
	}
	lic.Status = domain.LicenseActive
	lic.ActivatedAt = &now
	f.byKey[key] = lic
	return lic, nil
}

func (f *fakeLicenses) Revoke(_ context.Context, key string, _ time.Time) (domain.License, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, ok := f.byKey[key]
	if !ok {
		return domain.License{}, domain.ErrNotFound
	}
	if lic.Status != domain.LicenseAssigned && lic.Status != domain.LicenseActive {
		return domain.License{}, domain.ErrInvalidState
	}
	lic.Status = domain.LicenseRevoked
	f.byKey[key] = lic
	return lic, nil
}

func (f *fakeLicenses) RegisterApplication(_ context.Context, licenseID, applicationID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, key, ok := f.findByIDLocked(licenseID)
	if !ok {
		return domain.ErrNotFound
	}
	if f.apps[licenseID] == nil {
		f.apps[licenseID] = map[uint]bool{}
	}
	if f.apps[licenseID][applicationID] {
		return nil
	}
	if lic.UsedApplications >= lic.MaxApplications {
		return domain.ErrQuotaExceeded
	}
	f.apps[licenseID][applicationID] = true
	lic.UsedApplications++
	f.byKey[key] = lic
	return nil
}

func (f *fakeLicenses) RegisterDevice(_ context.Context, licenseID uint, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lic, key, ok := f.findByIDLocked(licenseID)
	if !ok {
		return domain.ErrNotFound
	}
	if f.devices[licenseID] == nil {
		f.devices[licenseID] = map[string]bool{}
	}
	if f.devices[licenseID][deviceID] {
		return nil
	}
	if lic.UsedDevices >= lic.MaxDevices {
		return domain.ErrDeviceLimitExceeded
	}
	f.devices[licenseID][deviceID] = true
	lic.UsedDevices++
	f.byKey[key] = lic
	return nil
}

func (f *fakeLicenses) ListDevices(_ context.Context, licenseID uint) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	devices := make([]string, 0, len(f.devices[licenseID]))
	for d := range f.devices[licenseID] {
		devices = append(devices, d)
	}
	return devices, nil
}

func (f *fakeLicenses) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, lic := range f.byKey {
		if (lic.Status == domain.LicenseAssigned || lic.Status == domain.LicenseActive) &&
			lic.ExpiresAt != nil && !lic.ExpiresAt.After(now) {
			lic.Status = domain.LicenseExpired
			f.byKey[key] = lic
			n++
		}
	}
	return n, nil
}

func (f *fakeLicenses) findByIDLocked(licenseID uint) (domain.License, string, bool) {
	for key, lic := range f.byKey {
		if lic.ID == licenseID {
			return lic, key, true
		}
	}
	return domain.License{}, "", false
}

type fakeApplications struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]domain.Application
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{byID: map[uint]domain.Application{}}
}

func (f *fakeApplications) seed(app domain.Application) domain.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	if app.ID == 0 {
		f.nextID++
		app.ID = f.nextID
	}
	if app.Status == "" {
		app.Status = domain.StatusActive
	}
	f.byID[app.ID] = app
	return app
}

func (f *fakeApplications) get(id uint) domain.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeApplications) Create(_ context.Context, params ports.CreateApplicationParams) (domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Name == params.Name {
			return domain.Application{}, domain.ErrDuplicateKey
		}
	}
	f.nextID++
	app := domain.Application{
		ID:                  f.nextID,
		UUID:                params.UUID,
		Name:                params.Name,
		Description:         params.Description,
		CurrentVersion:      params.CurrentVersion,
		MinimumVersion:      params.MinimumVersion,
		Status:              domain.StatusActive,
		SecretKey:           params.SecretKey,
		RequiresLicense:     params.RequiresLicense,
		RequiredLicenseType: params.RequiredLicenseType,
		CreatedAt:           params.CreatedAt,
	}
	f.byID[app.ID] = app
	return app, nil
}

func (f *fakeApplications) GetByID(_ context.Context, applicationID uint) (domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.byID[applicationID]
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	return app, nil
}

func (f *fakeApplications) GetByUUID(_ context.Context, appUUID string) (domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, app := range f.byID {
		if app.UUID == appUUID {
			return app, nil
		}
	}
	return domain.Application{}, domain.ErrNotFound
}

func (f *fakeApplications) AdjustSessionCount(_ context.Context, applicationID uint, delta int, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.byID[applicationID]
	if !ok {
		return domain.ErrNotFound
	}
	app.ActiveSessions += delta
	if app.ActiveSessions < 0 {
		app.ActiveSessions = 0
	}
	f.byID[applicationID] = app
	return nil
}

func (f *fakeApplications) IncrementTotalUsers(_ context.Context, applicationID uint, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.byID[applicationID]
	if !ok {
		return domain.ErrNotFound
	}
	app.TotalUsers++
	f.byID[applicationID] = app
	return nil
}

func (f *fakeApplications) Deactivate(_ context.Context, applicationID uint, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.byID[applicationID]
	if !ok {
		return domain.ErrNotFound
	}
	app.Status = domain.StatusDisabled
	f.byID[applicationID] = app
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[uuid.UUID]domain.Session{}}
}

func (f *fakeSessions) get(id uuid.UUID) domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeSessions) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byID[params.SessionID]; exists {
		return domain.Session{}, domain.ErrDuplicateKey
	}
	session := domain.Session{
		SessionID:       params.SessionID,
		UserID:          params.UserID,
		ApplicationID:   params.ApplicationID,
		DeviceID:        params.DeviceID,
		IPAddress:       params.IPAddress,
		UserAgent:       params.UserAgent,
		IsActive:        true,
		ExpiresAt:       params.ExpiresAt,
		AccessTokenHash: params.AccessTokenHash,
		LastActivityAt:  params.CreatedAt,
		CreatedAt:       params.CreatedAt,
	}
	f.byID[params.SessionID] = session
	return session, nil
}

func (f *fakeSessions) GetBySessionID(_ context.Context, sessionID uuid.UUID) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.byID[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return session, nil
}

func (f *fakeSessions) ListActiveByUser(_ context.Context, userID uint, now time.Time) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []domain.Session
	for _, s := range f.byID {
		if s.UserID == userID && s.ActiveAt(now) {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (f *fakeSessions) TouchActivity(_ context.Context, sessionID uuid.UUID, touchedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.LastActivityAt = touchedAt
	f.byID[sessionID] = s
	return nil
}

func (f *fakeSessions) Deactivate(_ context.Context, sessionID uuid.UUID, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok || !s.IsActive {
		return domain.ErrNotFound
	}
	s.IsActive = false
	s.LastActivityAt = endedAt
	f.byID[sessionID] = s
	return nil
}

func (f *fakeSessions) DeactivateForUserDevice(_ context.Context, userID uint, deviceID string, endedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.byID {
		if s.UserID == userID && s.DeviceID == deviceID && s.IsActive {
			s.IsActive = false
			s.LastActivityAt = endedAt
			f.byID[id] = s
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.byID {
		if s.IsActive && !s.ExpiresAt.After(now) {
			s.IsActive = false
			f.byID[id] = s
			n++
		}
	}
	return n, nil
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]bool
}

func (f *fakeRevocations) MarkRevoked(_ context.Context, sessionID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[sessionID] = true
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, sessionID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[sessionID], nil
}

type fakeEventSink struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func (f *fakeEventSink) Record(_ context.Context, event domain.SecurityEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEventSink) byType(eventType string) []domain.SecurityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []domain.SecurityEvent
	for _, e := range f.events {
		if e.EventType == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}
