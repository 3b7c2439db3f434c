package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

// TestLicenseLifecycleEndToEnd walks the full path from license issuance
// through session creation, device locking, and quota exhaustion.
func TestLicenseLifecycleEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	issued, err := f.service.IssueLicenses(ctx, IssueLicensesRequest{
		Type:            domain.TierStandard,
		Count:           1,
		MaxApplications: 5,
		MaxDevices:      2,
	})
	if err != nil {
		t.Fatalf("issue license failed: %v", err)
	}
	l1 := issued[0].Key

	created, err := f.service.CreateUser(ctx, CreateUserRequest{
		Username:     "alice",
		Email:        "alice@example.com",
		Secret:       "correct-horse",
		DeviceLocked: true,
	})
	if err != nil {
		t.Fatalf("create alice failed: %v", err)
	}

	if _, err := f.service.AssignLicense(ctx, l1, created.UserID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if _, err := f.service.ActivateLicense(ctx, l1); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	app1, err := f.service.CreateApplication(ctx, CreateApplicationRequest{
		Name:                "app-one",
		RequiresLicense:     true,
		RequiredLicenseType: domain.TierStandard,
	})
	if err != nil {
		t.Fatalf("create app failed: %v", err)
	}

	// First login from D1 binds the device and opens a session.
	auth, err := f.service.Authenticate(ctx, AuthenticateRequest{
		Username: "alice",
		Secret:   "correct-horse",
		DeviceID: "D1",
	})
	if err != nil {
		t.Fatalf("login from D1 failed: %v", err)
	}
	if !auth.DeviceBound {
		t.Fatalf("expected D1 bound on first login")
	}
	session, err := f.service.CreateSession(ctx, CreateSessionRequest{
		UserID:        auth.UserID,
		ApplicationID: app1.ApplicationID,
		DeviceID:      "D1",
	})
	if err != nil {
		t.Fatalf("session for app-one failed: %v", err)
	}
	if session.AccessToken == "" {
		t.Fatalf("expected access token")
	}

	// A second device fails on the locked account.
	if _, err := f.service.Authenticate(ctx, AuthenticateRequest{
		Username: "alice",
		Secret:   "correct-horse",
		DeviceID: "D2",
	}); !errors.Is(err, domain.ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch from D2, got %v", err)
	}

	// Five distinct applications fit the quota; the sixth does not.
	// app-one is already counted by the session above.
	for i := 2; i <= 5; i++ {
		app := f.seedApplication(domain.Application{Name: fmt.Sprintf("app-%d", i)})
		if err := f.service.CheckQuota(ctx, l1, app.ID); err != nil {
			t.Fatalf("application %d should fit the quota: %v", i, err)
		}
	}
	sixth := f.seedApplication(domain.Application{Name: "app-6"})
	if err := f.service.CheckQuota(ctx, l1, sixth.ID); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded on sixth application, got %v", err)
	}
	if got := f.licenses.get(l1).UsedApplications; got != 5 {
		t.Fatalf("expected used_applications 5, got %d", got)
	}
}
