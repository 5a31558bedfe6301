package trust

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coverledger/internal/model"
)

// Principal is the effective caller for the remainder of a request.
type Principal struct {
	ID    int64
	Email string
	Role  model.Role
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal installs the principal into the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the effective caller, or nil for an
// anonymous request.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// identityResolver looks up the asserted email in the identity store.
type identityResolver interface {
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
}

// Authenticate is the inter-service filter on the data tier. It resolves
// the signed caller assertion, looks the identity up and installs it as
// the effective principal. Every failure mode degrades to anonymous: a
// missing, expired or unknown caller proceeds unauthenticated and the
// route-level authorization decides what anonymous may do.
func Authenticate(signer *Signer, store identityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assertion := r.Header.Get(Header)
			if assertion == "" {
				next.ServeHTTP(w, r)
				return
			}

			email, err := signer.Parse(assertion)
			if err != nil {
				logger.Warn("rejected caller assertion", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			rec, err := store.GetByEmail(r.Context(), email)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithPrincipal(r.Context(), &Principal{
				ID:    rec.ID,
				Email: rec.Email,
				Role:  rec.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only authenticated callers holding one of the given
// roles. Anonymous requests get 401, wrong roles 403.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth allows any authenticated caller regardless of role.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
