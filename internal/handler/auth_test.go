package handler

import (
	"context"
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
)

type captureAccountNotifier struct {
	verifyURL string
}

func (n *captureAccountNotifier) SendVerification(_ string, verifyURL string) error {
	n.verifyURL = verifyURL
	return nil
}

func (n *captureAccountNotifier) SendPasswordReset(string, string) error { return nil }

type authFixture struct {
	store    *store.MemoryIdentities
	notifier *captureAccountNotifier
	router   chi.Router
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryIdentities()
	n := &captureAccountNotifier{}
	accounts := identity.NewAccounts(s, n, "http://web.test", logger)
	h := NewAuthHandler(logger, identity.NewVerifier(s), accounts)

	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)
	r.Get("/auth/verify", h.Verify)
	r.Post("/auth/forgot-password", h.ForgotPassword)
	r.Post("/auth/reset-password", h.ResetPassword)

	return &authFixture{store: s, notifier: n, router: r}
}

func (f *authFixture) post(target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *authFixture) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *authFixture) seedActive(t *testing.T, email, password string) {
	t.Helper()
	hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := f.store.Create(context.Background(), &model.Identity{
		Email: email, PasswordHash: hash, Role: model.RoleWorker, Enabled: true,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.seedActive(t, "user@x.test", "hunter2hunter2")

	t.Run("valid credentials", func(t *testing.T) {
		rr := f.post("/auth/login", `{"email":"user@x.test","password":"hunter2hunter2"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
		}
		if !strings.Contains(rr.Body.String(), `"role":"WORKER"`) {
			t.Errorf("expected role in response, got %s", rr.Body.String())
		}
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		wrong := f.post("/auth/login", `{"email":"user@x.test","password":"nope"}`)
		unknown := f.post("/auth/login", `{"email":"ghost@x.test","password":"nope"}`)

		if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
			t.Fatalf("statuses = %d, %d, want 401, 401", wrong.Code, unknown.Code)
		}
		if wrong.Body.String() != unknown.Body.String() {
			t.Errorf("bodies differ:\n%s\n%s", wrong.Body.String(), unknown.Body.String())
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := f.post("/auth/login", `{`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newAuthFixture(t)

	rr := f.post("/auth/register",
		`{"name":"New","email":"new@x.test","password":"secret123","mobile":"555-0100"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", rr.Code, rr.Body.String())
	}

	// Before verification the correct password is rejected with a
	// distinct message.
	rr = f.post("/auth/login", `{"email":"new@x.test","password":"secret123"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("pre-verification login = %d, want 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "not verified") {
		t.Errorf("expected not-verified message, got %s", rr.Body.String())
	}

	_, code, ok := strings.Cut(f.notifier.verifyURL, "code=")
	if !ok {
		t.Fatalf("no verification link captured: %q", f.notifier.verifyURL)
	}
	if rr := f.get("/auth/verify?code=" + code); rr.Code != http.StatusOK {
		t.Fatalf("verify = %d: %s", rr.Code, rr.Body.String())
	}

	if rr := f.post("/auth/login", `{"email":"new@x.test","password":"secret123"}`); rr.Code != http.StatusOK {
		t.Errorf("post-verification login = %d: %s", rr.Code, rr.Body.String())
	}

	// Duplicate registration conflicts.
	rr = f.post("/auth/register", `{"name":"Dup","email":"new@x.test","password":"other1234"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", rr.Code)
	}
}

func TestVerify_InvalidCode(t *testing.T) {
	f := newAuthFixture(t)
	if rr := f.get("/auth/verify?code=bogus"); rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestForgotPassword_AlwaysSucceeds(t *testing.T) {
	f := newAuthFixture(t)
	f.seedActive(t, "user@x.test", "hunter2hunter2")

	known := f.post("/auth/forgot-password", `{"email":"user@x.test"}`)
	unknown := f.post("/auth/forgot-password", `{"email":"ghost@x.test"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d, want 200, 200", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ:\n%s\n%s", known.Body.String(), unknown.Body.String())
	}
}

func TestResetPassword_InvalidToken(t *testing.T) {
	f := newAuthFixture(t)
	rr := f.post("/auth/reset-password", `{"token":"bogus","password":"newsecret1"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
