package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/store"
	"github.com/coverledger/internal/trust"
)

type recordingNotifier struct {
	approveURL string
}

func (n *recordingNotifier) SendRoleRequest(_ string, _ model.Role, approveURL, _ string) error {
	n.approveURL = approveURL
	return nil
}

func (n *recordingNotifier) SendRoleResult(string, bool, model.Role) error { return nil }

type usersFixture struct {
	store    *store.MemoryIdentities
	notifier *recordingNotifier
	router   chi.Router
}

func newUsersFixture(t *testing.T) *usersFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryIdentities()
	n := &recordingNotifier{}
	guard := identity.NewGuard("root@coverledger.test")
	coordinator := identity.NewCoordinator(s, guard, n, "http://web.test", logger)
	h := NewUsersHandler(logger, s, coordinator)

	r := chi.NewRouter()
	r.Get("/users/{id}", h.Get)
	r.Patch("/users/{id}", h.Update)
	r.Delete("/users/{id}", h.Delete)
	r.Post("/users/{id}/role-request", h.RequestRole)
	r.Post("/role-approval/approve", h.ApproveRole)
	r.Post("/role-approval/reject", h.RejectRole)

	return &usersFixture{store: s, notifier: n, router: r}
}

func (f *usersFixture) seed(t *testing.T, email string, role model.Role) *model.Identity {
	t.Helper()
	rec := &model.Identity{Email: email, PasswordHash: "x", Role: role, Enabled: true}
	if err := f.store.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return rec
}

// request performs one request, optionally as the given principal.
func (f *usersFixture) request(method, target, body string, as *model.Identity) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if as != nil {
		req = req.WithContext(trust.WithPrincipal(req.Context(), &trust.Principal{
			ID: as.ID, Email: as.Email, Role: as.Role,
		}))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *usersFixture) pendingToken(t *testing.T) string {
	t.Helper()
	_, token, ok := strings.Cut(f.notifier.approveURL, "token=")
	if !ok {
		t.Fatalf("no approve link captured, got %q", f.notifier.approveURL)
	}
	return token
}

func TestGetUser_AccessControl(t *testing.T) {
	f := newUsersFixture(t)
	alice := f.seed(t, "alice@x.test", model.RoleWorker)
	bob := f.seed(t, "bob@x.test", model.RoleWorker)
	admin := f.seed(t, "admin@x.test", model.RoleAdmin)

	if rr := f.request(http.MethodGet, "/users/1", "", alice); rr.Code != http.StatusOK {
		t.Errorf("owner fetch = %d, want 200", rr.Code)
	}
	if rr := f.request(http.MethodGet, "/users/1", "", bob); rr.Code != http.StatusForbidden {
		t.Errorf("peer fetch = %d, want 403", rr.Code)
	}
	if rr := f.request(http.MethodGet, "/users/1", "", admin); rr.Code != http.StatusOK {
		t.Errorf("admin fetch = %d, want 200", rr.Code)
	}
	if rr := f.request(http.MethodGet, "/users/999", "", admin); rr.Code != http.StatusNotFound {
		t.Errorf("missing user = %d, want 404", rr.Code)
	}
}

func TestGetUser_NeverLeaksSecrets(t *testing.T) {
	f := newUsersFixture(t)
	alice := f.seed(t, "alice@x.test", model.RoleWorker)
	if rr := f.request(http.MethodPost, "/users/1/role-request", `{"role":"MANAGER"}`, alice); rr.Code != http.StatusOK {
		t.Fatalf("role request = %d", rr.Code)
	}

	rr := f.request(http.MethodGet, "/users/1", "", alice)
	body := rr.Body.String()
	for _, secret := range []string{"passwordHash", "pendingToken", "PendingToken", f.pendingToken(t)} {
		if strings.Contains(body, secret) {
			t.Errorf("response leaks %q:\n%s", secret, body)
		}
	}
}

func TestRoleRequestAndApprove(t *testing.T) {
	f := newUsersFixture(t)
	alice := f.seed(t, "alice@x.test", model.RoleWorker)
	f.seed(t, "admin@x.test", model.RoleAdmin)

	// Legacy prefixed role spelling is accepted at the boundary.
	rr := f.request(http.MethodPost, "/users/1/role-request", `{"role":"ROLE_MANAGER"}`, alice)
	if rr.Code != http.StatusOK {
		t.Fatalf("role request = %d: %s", rr.Code, rr.Body.String())
	}
	token := f.pendingToken(t)

	rr = f.request(http.MethodPost, "/role-approval/approve?token="+token, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("approve = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Role model.Role `json:"role"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Role != model.RoleManager {
		t.Errorf("role = %q, want MANAGER", resp.Role)
	}

	// Replay is a client error, not a server error.
	rr = f.request(http.MethodPost, "/role-approval/approve?token="+token, "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("replayed approve = %d, want 400", rr.Code)
	}
}

func TestRoleRequest_InvalidRole(t *testing.T) {
	f := newUsersFixture(t)
	alice := f.seed(t, "alice@x.test", model.RoleWorker)

	rr := f.request(http.MethodPost, "/users/1/role-request", `{"role":"OVERLORD"}`, alice)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid role = %d, want 400", rr.Code)
	}
}

func TestRejectRole_KeepsCurrentRole(t *testing.T) {
	f := newUsersFixture(t)
	alice := f.seed(t, "alice@x.test", model.RoleWorker)

	f.request(http.MethodPost, "/users/1/role-request", `{"role":"ADMIN"}`, alice)
	token := f.pendingToken(t)

	rr := f.request(http.MethodPost, "/role-approval/reject?token="+token, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reject = %d: %s", rr.Code, rr.Body.String())
	}

	rec, _ := f.store.GetByEmail(context.Background(), "alice@x.test")
	if rec.Role != model.RoleWorker {
		t.Errorf("role = %q after rejection, want WORKER", rec.Role)
	}
}

func TestApprove_GuardViolationsAreClientErrors(t *testing.T) {
	f := newUsersFixture(t)
	admin := f.seed(t, "only-admin@x.test", model.RoleAdmin)

	f.request(http.MethodPost, "/users/1/role-request", `{"role":"WORKER"}`, admin)
	token := f.pendingToken(t)

	rr := f.request(http.MethodPost, "/role-approval/approve?token="+token, "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("last-admin demotion = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "last administrator") {
		t.Errorf("unexpected error body: %s", rr.Body.String())
	}
}

func TestDeleteUser_GuardErrors(t *testing.T) {
	f := newUsersFixture(t)
	super := f.seed(t, "root@coverledger.test", model.RoleAdmin)
	worker := f.seed(t, "worker@x.test", model.RoleWorker)
	admin := f.seed(t, "admin@x.test", model.RoleAdmin)

	if rr := f.request(http.MethodDelete, "/users/1", "", admin); rr.Code != http.StatusBadRequest {
		t.Errorf("delete super admin = %d, want 400", rr.Code)
	}
	_ = super

	if rr := f.request(http.MethodDelete, "/users/2", "", admin); rr.Code != http.StatusOK {
		t.Errorf("delete worker = %d, want 200", rr.Code)
	}
	_ = worker

	if rr := f.request(http.MethodDelete, "/users/2", "", admin); rr.Code != http.StatusNotFound {
		t.Errorf("delete again = %d, want 404", rr.Code)
	}
}

func TestUpdateUser_OwnerOnly(t *testing.T) {
	f := newUsersFixture(t)
	alice := f.seed(t, "alice@x.test", model.RoleWorker)
	bob := f.seed(t, "bob@x.test", model.RoleWorker)

	rr := f.request(http.MethodPatch, "/users/1", `{"name":"Alice Prime"}`, alice)
	if rr.Code != http.StatusOK {
		t.Fatalf("self update = %d: %s", rr.Code, rr.Body.String())
	}
	rec, _ := f.store.GetByEmail(context.Background(), "alice@x.test")
	if rec.Name != "Alice Prime" {
		t.Errorf("name = %q", rec.Name)
	}

	if rr := f.request(http.MethodPatch, "/users/1", `{"name":"Mallory"}`, bob); rr.Code != http.StatusForbidden {
		t.Errorf("peer update = %d, want 403", rr.Code)
	}
}
