package trust

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
)

type staticResolver map[string]*model.Identity

func (r staticResolver) GetByEmail(_ context.Context, email string) (*model.Identity, error) {
	rec, ok := r[email]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return rec, nil
}

func echoPrincipal() (http.HandlerFunc, *[]*Principal) {
	var seen []*Principal
	return func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, PrincipalFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}, &seen
}

func newTestChain(t *testing.T, resolver staticResolver) (*Signer, http.Handler, *[]*Principal) {
	t.Helper()
	signer := NewSigner("0123456789abcdef0123456789abcdef", DefaultTTL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inner, seen := echoPrincipal()
	return signer, Authenticate(signer, resolver, logger)(inner), seen
}

func TestAuthenticate_ValidAssertion(t *testing.T) {
	resolver := staticResolver{
		"admin@x.test": {ID: 7, Email: "admin@x.test", Role: model.RoleAdmin},
	}
	signer, chain, seen := newTestChain(t, resolver)

	assertion, err := signer.Sign("admin@x.test")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, assertion)
	chain.ServeHTTP(httptest.NewRecorder(), req)

	p := (*seen)[0]
	if p == nil {
		t.Fatal("no principal installed for a valid assertion")
	}
	if p.ID != 7 || p.Role != model.RoleAdmin {
		t.Errorf("principal = %+v", p)
	}
}

func TestAuthenticate_DegradesToAnonymous(t *testing.T) {
	resolver := staticResolver{
		"known@x.test": {ID: 1, Email: "known@x.test", Role: model.RoleWorker},
	}
	signer, chain, seen := newTestChain(t, resolver)

	other := NewSigner("ffffffffffffffffffffffffffffffff", DefaultTTL)
	forged, _ := other.Sign("known@x.test")
	unknown, _ := signer.Sign("ghost@x.test")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"forged signature", forged},
		{"unknown identity", unknown},
		{"malformed token", "garbage"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			*seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(Header, tc.header)
			}
			rr := httptest.NewRecorder()
			chain.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("status = %d, the request must still pass through", rr.Code)
			}
			if (*seen)[0] != nil {
				t.Errorf("principal = %+v, want anonymous", (*seen)[0])
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireRole(model.RoleAdmin, model.RoleManager)(next)

	run := func(p *Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if p != nil {
			req = req.WithContext(WithPrincipal(req.Context(), p))
		}
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		return rr.Code
	}

	if got := run(nil); got != http.StatusUnauthorized {
		t.Errorf("anonymous = %d, want 401", got)
	}
	if got := run(&Principal{Role: model.RoleWorker}); got != http.StatusForbidden {
		t.Errorf("worker = %d, want 403", got)
	}
	if got := run(&Principal{Role: model.RoleManager}); got != http.StatusOK {
		t.Errorf("manager = %d, want 200", got)
	}
	if got := run(&Principal{Role: model.RoleAdmin}); got != http.StatusOK {
		t.Errorf("admin = %d, want 200", got)
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := RequireAuth()(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous = %d, want 401", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &Principal{ID: 1, Role: model.RoleWorker}))
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated = %d, want 200", rr.Code)
	}
}
