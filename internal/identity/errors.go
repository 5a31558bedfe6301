package identity

import "errors"

var (
	// ErrAuthenticationFailed covers both unknown email and wrong password
	// so a login response never reveals whether an address is registered.
	ErrAuthenticationFailed = errors.New("invalid email or password")

	// ErrAccountNotVerified is returned when credentials are correct but the
	// account has not completed email verification.
	ErrAccountNotVerified = errors.New("account not verified")

	// ErrTokenNotFound means no identity carries the given workflow token.
	// A consumed token is indistinguishable from one that never existed.
	ErrTokenNotFound = errors.New("token not found")

	// ErrNoPendingRequest means the token matched an identity without a
	// requested role. Unreachable while the pairing invariant holds.
	ErrNoPendingRequest = errors.New("no pending role request")

	// ErrLastAdminProtected blocks any mutation that would leave the system
	// without an administrator.
	ErrLastAdminProtected = errors.New("cannot remove the last administrator")

	// ErrSuperAdminProtected blocks demotion or deletion of the designated
	// super-administrator, independent of the admin count.
	ErrSuperAdminProtected = errors.New("the super administrator cannot be modified or deleted")

	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email is already registered")
	ErrCodeNotFound = errors.New("verification code not found")
)
