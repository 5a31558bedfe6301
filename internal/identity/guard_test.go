package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/store"
)

func TestCheckRoleChange(t *testing.T) {
	guard := identity.NewGuard(superAdminEmail)

	cases := []struct {
		name    string
		admins  int
		email   string
		from    model.Role
		to      model.Role
		wantErr error
	}{
		{"promotion is always allowed", 1, "user@x.test", model.RoleWorker, model.RoleAdmin, nil},
		{"lateral change is allowed", 2, "user@x.test", model.RoleWorker, model.RoleManager, nil},
		{"demotion with admins to spare", 2, "admin@x.test", model.RoleAdmin, model.RoleWorker, nil},
		{"demoting the last admin", 1, "admin@x.test", model.RoleAdmin, model.RoleWorker, identity.ErrLastAdminProtected},
		{"demoting the super admin", 5, superAdminEmail, model.RoleAdmin, model.RoleWorker, identity.ErrSuperAdminProtected},
		{"super admin kept as admin", 1, superAdminEmail, model.RoleAdmin, model.RoleAdmin, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := store.NewMemoryIdentities()
			for i := 0; i < tc.admins; i++ {
				email := tc.email
				if i > 0 || tc.from != model.RoleAdmin {
					email = "filler" + string(rune('a'+i)) + "@x.test"
				}
				seedUser(t, s, email, model.RoleAdmin)
			}

			rec := &model.Identity{Email: tc.email, Role: tc.from}
			err := guard.CheckRoleChange(context.Background(), s, rec, tc.to)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("CheckRoleChange = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCheckDeletion(t *testing.T) {
	guard := identity.NewGuard(superAdminEmail)
	ctx := context.Background()

	t.Run("worker may be deleted", func(t *testing.T) {
		s := store.NewMemoryIdentities()
		seedUser(t, s, "admin@x.test", model.RoleAdmin)
		rec := &model.Identity{Email: "worker@x.test", Role: model.RoleWorker}
		if err := guard.CheckDeletion(ctx, s, rec); err != nil {
			t.Errorf("CheckDeletion = %v, want nil", err)
		}
	})

	t.Run("last admin is protected", func(t *testing.T) {
		s := store.NewMemoryIdentities()
		seedUser(t, s, "admin@x.test", model.RoleAdmin)
		rec := &model.Identity{Email: "admin@x.test", Role: model.RoleAdmin}
		if err := guard.CheckDeletion(ctx, s, rec); !errors.Is(err, identity.ErrLastAdminProtected) {
			t.Errorf("CheckDeletion = %v, want ErrLastAdminProtected", err)
		}
	})

	t.Run("super admin is always protected", func(t *testing.T) {
		s := store.NewMemoryIdentities()
		seedUser(t, s, superAdminEmail, model.RoleAdmin)
		seedUser(t, s, "other@x.test", model.RoleAdmin)
		rec := &model.Identity{Email: superAdminEmail, Role: model.RoleAdmin}
		if err := guard.CheckDeletion(ctx, s, rec); !errors.Is(err, identity.ErrSuperAdminProtected) {
			t.Errorf("CheckDeletion = %v, want ErrSuperAdminProtected", err)
		}
	})

	t.Run("email match ignores case", func(t *testing.T) {
		if !guard.IsSuperAdmin("ROOT@CoverLedger.Test") {
			t.Error("IsSuperAdmin should be case insensitive")
		}
	})
}
