package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coverledger/internal/model"
)

// AccountNotifier delivers account lifecycle messages, best-effort.
type AccountNotifier interface {
	SendVerification(userEmail, verifyURL string) error
	SendPasswordReset(userEmail, resetURL string) error
}

// Accounts handles registration, email verification and password recovery.
type Accounts struct {
	store    Store
	notifier AccountNotifier
	logger   *slog.Logger

	verifyBase string
	resetBase  string
}

func NewAccounts(store Store, notifier AccountNotifier, webBaseURL string, logger *slog.Logger) *Accounts {
	return &Accounts{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		verifyBase: webBaseURL + "/verify",
		resetBase:  webBaseURL + "/reset-password",
	}
}

// Register creates a new disabled identity with the default WORKER role and
// a fresh verification code, then emails the activation link. Elevated
// roles are only ever reached through the approval workflow.
func (a *Accounts) Register(ctx context.Context, name, email, password, mobile string) (*model.Identity, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rec := &model.Identity{
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Role:         model.RoleWorker,
		Enabled:      false,
		VerifyCode:   NewCode(),
		Mobile:       mobile,
	}
	if err := a.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	verifyURL := fmt.Sprintf("%s?code=%s", a.verifyBase, rec.VerifyCode)
	if err := a.notifier.SendVerification(rec.Email, verifyURL); err != nil {
		// Do not fail the registration; surface the link for operators.
		a.logger.Error("verification email failed", "user", rec.Email, "verify_url", verifyURL, "err", err)
	}
	return rec, nil
}

// VerifyAccount enables the account carrying the given verification code.
// The code is consumed atomically; replaying it returns ErrCodeNotFound.
func (a *Accounts) VerifyAccount(ctx context.Context, code string) error {
	_, err := a.store.MutateByVerifyCode(ctx, code, func(_ context.Context, _ View, rec *model.Identity) error {
		rec.Enabled = true
		rec.VerifyCode = ""
		return nil
	})
	return err
}

// RequestPasswordReset issues a reset token and emails the recovery link.
// Unknown emails are ignored silently so the endpoint cannot be used to
// probe for registered addresses.
func (a *Accounts) RequestPasswordReset(ctx context.Context, email string) error {
	token := NewCode()
	rec, err := a.store.Mutate(ctx, NormalizeEmail(email), func(_ context.Context, _ View, rec *model.Identity) error {
		rec.ResetToken = token
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	resetURL := fmt.Sprintf("%s?token=%s", a.resetBase, token)
	if err := a.notifier.SendPasswordReset(rec.Email, resetURL); err != nil {
		a.logger.Error("password reset email failed", "user", rec.Email, "reset_url", resetURL, "err", err)
	}
	return nil
}

// ResetPassword stores a new password hash for the identity carrying the
// reset token and consumes the token.
func (a *Accounts) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = a.store.MutateByResetToken(ctx, token, func(_ context.Context, _ View, rec *model.Identity) error {
		rec.PasswordHash = hash
		rec.ResetToken = ""
		return nil
	})
	return err
}

// SeedSuperAdmin creates the designated super-administrator account from
// configuration if it does not exist yet. The account is created enabled;
// the invariant that at least one ADMIN exists holds from first boot.
func SeedSuperAdmin(ctx context.Context, store Store, email, password string, logger *slog.Logger) {
	if email == "" || password == "" {
		return
	}
	email = NormalizeEmail(email)

	if _, err := store.GetByEmail(ctx, email); err == nil {
		return
	} else if !errors.Is(err, ErrUserNotFound) {
		logger.Error("seed: super admin lookup failed", "err", err)
		return
	}

	hash, err := HashPassword(password)
	if err != nil {
		logger.Error("seed: failed to hash password", "err", err)
		return
	}
	if err := store.Create(ctx, &model.Identity{
		Name:         "Super Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Enabled:      true,
	}); err != nil {
		logger.Error("seed: failed to create super admin", "err", err)
		return
	}
	logger.Info("seed: created super admin", "email", email)
}
