package identity

import (
	"context"

	"github.com/coverledger/internal/model"
)

// Guard enforces the administrative invariants: the system always retains
// at least one ADMIN, and the designated super-administrator can never be
// demoted or deleted. Both checks run inside the same atomic unit as the
// mutation they guard, so a second conflicting call observes the already
// decremented count.
type Guard struct {
	superAdminEmail string
}

func NewGuard(superAdminEmail string) *Guard {
	return &Guard{superAdminEmail: NormalizeEmail(superAdminEmail)}
}

// IsSuperAdmin reports whether email belongs to the designated
// super-administrator.
func (g *Guard) IsSuperAdmin(email string) bool {
	return g.superAdminEmail != "" && NormalizeEmail(email) == g.superAdminEmail
}

// CheckRoleChange rejects a role change that would remove ADMIN from the
// super-administrator or from the last remaining administrator. The
// super-admin check comes first and does not depend on the admin count.
// Changes that do not take ADMIN away pass without touching the store.
func (g *Guard) CheckRoleChange(ctx context.Context, view View, rec *model.Identity, newRole model.Role) error {
	if newRole != model.RoleAdmin && g.IsSuperAdmin(rec.Email) {
		return ErrSuperAdminProtected
	}
	if rec.Role != model.RoleAdmin || newRole == model.RoleAdmin {
		return nil
	}
	n, err := view.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdminProtected
	}
	return nil
}

// CheckDeletion rejects deletion of the super-administrator or of the last
// remaining administrator.
func (g *Guard) CheckDeletion(ctx context.Context, view View, rec *model.Identity) error {
	if g.IsSuperAdmin(rec.Email) {
		return ErrSuperAdminProtected
	}
	if rec.Role != model.RoleAdmin {
		return nil
	}
	n, err := view.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdminProtected
	}
	return nil
}
