package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/store"
)

func seedCredentials(t *testing.T, s identity.Store, email, password string, enabled bool) {
	t.Helper()
	hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := s.Create(context.Background(), &model.Identity{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleWorker,
		Enabled:      enabled,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestVerify(t *testing.T) {
	s := store.NewMemoryIdentities()
	seedCredentials(t, s, "active@x.test", "correct horse", true)
	seedCredentials(t, s, "unverified@x.test", "battery staple", false)
	v := identity.NewVerifier(s)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		rec, err := v.Verify(ctx, "active@x.test", "correct horse")
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if rec.Email != "active@x.test" {
			t.Errorf("email = %q", rec.Email)
		}
	})

	t.Run("email lookup ignores case", func(t *testing.T) {
		if _, err := v.Verify(ctx, "ACTIVE@X.Test", "correct horse"); err != nil {
			t.Errorf("Verify: %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := v.Verify(ctx, "active@x.test", "wrong")
		if !errors.Is(err, identity.ErrAuthenticationFailed) {
			t.Errorf("Verify = %v, want ErrAuthenticationFailed", err)
		}
	})

	t.Run("unknown email gets the same error as a wrong password", func(t *testing.T) {
		_, err := v.Verify(ctx, "nobody@x.test", "anything")
		if !errors.Is(err, identity.ErrAuthenticationFailed) {
			t.Errorf("Verify = %v, want ErrAuthenticationFailed", err)
		}
	})

	t.Run("correct password on an unverified account", func(t *testing.T) {
		_, err := v.Verify(ctx, "unverified@x.test", "battery staple")
		if !errors.Is(err, identity.ErrAccountNotVerified) {
			t.Errorf("Verify = %v, want ErrAccountNotVerified", err)
		}
	})

	t.Run("wrong password on an unverified account stays generic", func(t *testing.T) {
		_, err := v.Verify(ctx, "unverified@x.test", "wrong")
		if !errors.Is(err, identity.ErrAuthenticationFailed) {
			t.Errorf("Verify = %v, want ErrAuthenticationFailed", err)
		}
	})
}
