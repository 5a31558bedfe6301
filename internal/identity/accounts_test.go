package identity_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/store"
)

type fakeAccountNotifier struct {
	mu        sync.Mutex
	verifyURL string
	resetURL  string
	resets    int
}

func (n *fakeAccountNotifier) SendVerification(userEmail, verifyURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifyURL = verifyURL
	return nil
}

func (n *fakeAccountNotifier) SendPasswordReset(userEmail, resetURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetURL = resetURL
	n.resets++
	return nil
}

func linkParam(t *testing.T, link, param string) string {
	t.Helper()
	_, value, ok := strings.Cut(link, param+"=")
	if !ok {
		t.Fatalf("no %s parameter in %q", param, link)
	}
	return value
}

func TestRegisterAndVerify(t *testing.T) {
	s := store.NewMemoryIdentities()
	n := &fakeAccountNotifier{}
	a := identity.NewAccounts(s, n, "http://web.test", testLogger())
	ctx := context.Background()

	rec, err := a.Register(ctx, "New User", "New.User@X.Test", "secret123", "555-0100")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Role != model.RoleWorker {
		t.Errorf("role = %q, want WORKER", rec.Role)
	}
	if rec.Enabled {
		t.Error("new accounts must start disabled")
	}
	if rec.Email != "new.user@x.test" {
		t.Errorf("email not normalized: %q", rec.Email)
	}

	if _, err := a.Register(ctx, "Dup", "new.user@x.test", "other", ""); !errors.Is(err, identity.ErrEmailTaken) {
		t.Errorf("duplicate Register = %v, want ErrEmailTaken", err)
	}

	code := linkParam(t, n.verifyURL, "code")
	if err := a.VerifyAccount(ctx, code); err != nil {
		t.Fatalf("VerifyAccount: %v", err)
	}

	stored, _ := s.GetByEmail(ctx, "new.user@x.test")
	if !stored.Enabled {
		t.Error("account not enabled after verification")
	}

	// The code is single use.
	if err := a.VerifyAccount(ctx, code); !errors.Is(err, identity.ErrCodeNotFound) {
		t.Errorf("replayed VerifyAccount = %v, want ErrCodeNotFound", err)
	}
}

func TestPasswordReset(t *testing.T) {
	s := store.NewMemoryIdentities()
	n := &fakeAccountNotifier{}
	a := identity.NewAccounts(s, n, "http://web.test", testLogger())
	seedCredentials(t, s, "user@x.test", "old password", true)
	ctx := context.Background()

	if err := a.RequestPasswordReset(ctx, "user@x.test"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	token := linkParam(t, n.resetURL, "token")

	if err := a.ResetPassword(ctx, token, "new password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	v := identity.NewVerifier(s)
	if _, err := v.Verify(ctx, "user@x.test", "new password"); err != nil {
		t.Errorf("Verify with new password: %v", err)
	}
	if _, err := v.Verify(ctx, "user@x.test", "old password"); !errors.Is(err, identity.ErrAuthenticationFailed) {
		t.Errorf("Verify with old password = %v, want ErrAuthenticationFailed", err)
	}

	// Reset tokens are single use too.
	if err := a.ResetPassword(ctx, token, "again"); !errors.Is(err, identity.ErrTokenNotFound) {
		t.Errorf("replayed ResetPassword = %v, want ErrTokenNotFound", err)
	}
}

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	s := store.NewMemoryIdentities()
	n := &fakeAccountNotifier{}
	a := identity.NewAccounts(s, n, "http://web.test", testLogger())

	if err := a.RequestPasswordReset(context.Background(), "ghost@x.test"); err != nil {
		t.Errorf("RequestPasswordReset for unknown email = %v, want nil", err)
	}
	if n.resets != 0 {
		t.Errorf("reset emails sent = %d, want 0", n.resets)
	}
}

func TestSeedSuperAdmin(t *testing.T) {
	s := store.NewMemoryIdentities()
	ctx := context.Background()

	identity.SeedSuperAdmin(ctx, s, "Root@CoverLedger.Test", "bootstrap-pass", testLogger())

	rec, err := s.GetByEmail(ctx, "root@coverledger.test")
	if err != nil {
		t.Fatalf("super admin not created: %v", err)
	}
	if rec.Role != model.RoleAdmin {
		t.Errorf("role = %q, want ADMIN", rec.Role)
	}
	if !rec.Enabled {
		t.Error("super admin must be enabled from the start")
	}

	// Idempotent on restart.
	identity.SeedSuperAdmin(ctx, s, "root@coverledger.test", "different-pass", testLogger())
	v := identity.NewVerifier(s)
	if _, err := v.Verify(ctx, "root@coverledger.test", "bootstrap-pass"); err != nil {
		t.Errorf("original password stopped working after reseed: %v", err)
	}
}
