package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/coverledger/internal/model"
)

// Notifier delivers workflow messages. Delivery is best-effort from the
// coordinator's point of view: a send failure never rolls back a committed
// state change, it is logged and swallowed.
type Notifier interface {
	SendRoleRequest(userEmail string, desired model.Role, approveURL, rejectURL string) error
	SendRoleResult(userEmail string, approved bool, role model.Role) error
}

// Coordinator drives the token-based role-change workflow: a user requests
// an elevated role, an administrator approves or rejects the request via an
// emailed link. Per identity the request state moves NONE -> PENDING ->
// NONE; approval and rejection consume the token exactly once.
type Coordinator struct {
	store    Store
	guard    *Guard
	notifier Notifier
	logger   *slog.Logger

	// approveBase and rejectBase are the presentation-tier endpoints the
	// emailed links point at; the token is appended as a query parameter.
	approveBase string
	rejectBase  string
}

func NewCoordinator(store Store, guard *Guard, notifier Notifier, webBaseURL string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:       store,
		guard:       guard,
		notifier:    notifier,
		logger:      logger,
		approveBase: webBaseURL + "/role-approval/approve",
		rejectBase:  webBaseURL + "/role-approval/reject",
	}
}

// RequestChange records a pending role-change request for the identity and
// notifies the administrative contact. Allowed from any state: a request
// issued while another is pending silently replaces it, permanently
// invalidating the earlier token (last request wins).
func (c *Coordinator) RequestChange(ctx context.Context, email string, desired model.Role) error {
	token := uuid.NewString()

	rec, err := c.store.Mutate(ctx, NormalizeEmail(email), func(ctx context.Context, _ View, rec *model.Identity) error {
		rec.PendingToken = token
		rec.PendingRole = desired
		return nil
	})
	if err != nil {
		return fmt.Errorf("record role request: %w", err)
	}

	approveURL := fmt.Sprintf("%s?token=%s", c.approveBase, token)
	rejectURL := fmt.Sprintf("%s?token=%s", c.rejectBase, token)
	if err := c.notifier.SendRoleRequest(rec.Email, desired, approveURL, rejectURL); err != nil {
		c.logger.Error("role request notification failed", "user", rec.Email, "err", err)
	}
	return nil
}

// Approve resolves the pending request identified by token: the guard is
// consulted, the role is updated and both pending fields are cleared, all
// as one conditional update. A second Approve with the same token fails
// with ErrTokenNotFound. On guard rejection the pending request is left
// intact so the administrator can retry after promoting someone else.
func (c *Coordinator) Approve(ctx context.Context, token string) (*model.Identity, error) {
	rec, err := c.store.MutateByToken(ctx, token, func(ctx context.Context, view View, rec *model.Identity) error {
		if rec.PendingRole == "" {
			return ErrNoPendingRequest
		}
		if err := c.guard.CheckRoleChange(ctx, view, rec, rec.PendingRole); err != nil {
			return err
		}
		rec.Role = rec.PendingRole
		rec.PendingToken = ""
		rec.PendingRole = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.notifier.SendRoleResult(rec.Email, true, rec.Role); err != nil {
		c.logger.Error("approval notification failed", "user", rec.Email, "err", err)
	}
	return rec, nil
}

// Reject clears the pending request identified by token without touching
// the role, then notifies the user of the denial.
func (c *Coordinator) Reject(ctx context.Context, token string) (*model.Identity, error) {
	rec, err := c.store.MutateByToken(ctx, token, func(ctx context.Context, _ View, rec *model.Identity) error {
		rec.PendingToken = ""
		rec.PendingRole = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.notifier.SendRoleResult(rec.Email, false, rec.Role); err != nil {
		c.logger.Error("rejection notification failed", "user", rec.Email, "err", err)
	}
	return rec, nil
}

// DeleteUser removes an identity after the guard clears the deletion.
func (c *Coordinator) DeleteUser(ctx context.Context, id int64) error {
	return c.store.Delete(ctx, id, func(ctx context.Context, view View, rec *model.Identity) error {
		return c.guard.CheckDeletion(ctx, view, rec)
	})
}
