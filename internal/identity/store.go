package identity

import (
	"context"
	"strings"

	"github.com/coverledger/internal/model"
)

// View is the read surface available inside an atomic mutation. A count
// observed through it reflects every mutation committed before, and every
// mutation racing with, the current one.
type View interface {
	CountByRole(ctx context.Context, role model.Role) (int, error)
}

// MutateFunc inspects and edits a single identity record. Returning an
// error aborts the mutation; nothing is persisted.
type MutateFunc func(ctx context.Context, view View, rec *model.Identity) error

// Store owns identity records keyed by lowercase email. Every mutating
// method is a single atomic read-modify-write against one record; the
// token-keyed variants are conditional on the token still being present,
// which is what makes workflow tokens single-use under concurrent calls.
type Store interface {
	Create(ctx context.Context, rec *model.Identity) error
	GetByID(ctx context.Context, id int64) (*model.Identity, error)
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	List(ctx context.Context) ([]model.Identity, error)
	CountByRole(ctx context.Context, role model.Role) (int, error)

	// Mutate applies fn to the record with the given email.
	// Returns ErrUserNotFound if no such record exists.
	Mutate(ctx context.Context, email string, fn MutateFunc) (*model.Identity, error)

	// MutateByToken applies fn to the record whose pending role-change
	// token equals token. Returns ErrTokenNotFound otherwise.
	MutateByToken(ctx context.Context, token string, fn MutateFunc) (*model.Identity, error)

	// MutateByVerifyCode applies fn to the record with the given
	// verification code. Returns ErrCodeNotFound otherwise.
	MutateByVerifyCode(ctx context.Context, code string, fn MutateFunc) (*model.Identity, error)

	// MutateByResetToken applies fn to the record with the given password
	// reset token. Returns ErrTokenNotFound otherwise.
	MutateByResetToken(ctx context.Context, token string, fn MutateFunc) (*model.Identity, error)

	// Delete removes the record with the given id. guard runs inside the
	// same atomic unit; a guard error aborts the deletion.
	Delete(ctx context.Context, id int64, guard MutateFunc) error
}

// NormalizeEmail lowercases and trims an email so it can serve as the
// case-insensitive record key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
