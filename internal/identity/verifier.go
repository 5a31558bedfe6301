package identity

import (
	"context"
	"errors"

	"github.com/coverledger/internal/model"
)

// dummyHash is a bcrypt hash of a random string nobody knows. Login
// attempts for unregistered emails are compared against it so the
// unknown-email and wrong-password paths take the same time.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Verifier validates submitted credentials against the identity store.
// Verification happens entirely on the data-owning tier; password hashes
// never cross the service boundary.
type Verifier struct {
	store Store
}

func NewVerifier(store Store) *Verifier {
	return &Verifier{store: store}
}

// Verify checks an email/password pair. It returns the identity on
// success, ErrAuthenticationFailed for an unknown email or a password
// mismatch, and ErrAccountNotVerified when the credentials are correct but
// the account has not been activated. It has no side effects.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*model.Identity, error) {
	rec, err := v.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			CheckPassword(dummyHash, password)
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}
	if !CheckPassword(rec.PasswordHash, password) {
		return nil, ErrAuthenticationFailed
	}
	if !rec.Enabled {
		return nil, ErrAccountNotVerified
	}
	return rec, nil
}
