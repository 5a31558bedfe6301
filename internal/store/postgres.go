package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
)

// Identities is the Postgres-backed identity.Store. Every mutation runs in
// a transaction that locks the target row; the token-keyed lookups are
// conditional on the token column still matching when the lock is granted,
// so a consumed token is gone by the time a racing transaction proceeds.
type Identities struct {
	db *pgxpool.Pool
}

func NewIdentities(db *pgxpool.Pool) *Identities {
	return &Identities{db: db}
}

const identityColumns = `id, name, email, password_hash, role, enabled,
	pending_token, pending_role, verify_code, reset_token, mobile,
	avatar_url, created_at, last_login_at`

func scanIdentity(row pgx.Row) (*model.Identity, error) {
	var (
		rec         model.Identity
		role        string
		pendingRole string
		lastLogin   pgtype.Timestamptz
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Email, &rec.PasswordHash,
		&role, &rec.Enabled, &rec.PendingToken, &pendingRole,
		&rec.VerifyCode, &rec.ResetToken, &rec.Mobile, &rec.AvatarURL,
		&rec.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if rec.Role, err = model.ParseRole(role); err != nil {
		return nil, fmt.Errorf("identity %d: %w", rec.ID, err)
	}
	if pendingRole != "" {
		if rec.PendingRole, err = model.ParseRole(pendingRole); err != nil {
			return nil, fmt.Errorf("identity %d: %w", rec.ID, err)
		}
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		rec.LastLoginAt = &t
	}
	return &rec, nil
}

func (s *Identities) Create(ctx context.Context, rec *model.Identity) error {
	rec.Email = identity.NormalizeEmail(rec.Email)
	err := s.db.QueryRow(ctx, `
		INSERT INTO identities
			(name, email, password_hash, role, enabled, verify_code, mobile, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		rec.Name, rec.Email, rec.PasswordHash, string(rec.Role),
		rec.Enabled, rec.VerifyCode, rec.Mobile, rec.AvatarURL,
	).Scan(&rec.ID, &rec.CreatedAt)
	if isUniqueViolation(err) {
		return identity.ErrEmailTaken
	}
	return err
}

func (s *Identities) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`,
		identity.NormalizeEmail(email))
	rec, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrUserNotFound
	}
	return rec, err
}

func (s *Identities) GetByID(ctx context.Context, id int64) (*model.Identity, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	rec, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrUserNotFound
	}
	return rec, err
}

func (s *Identities) List(ctx context.Context) ([]model.Identity, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+identityColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Identity
	for rows.Next() {
		rec, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Identities) CountByRole(ctx context.Context, role model.Role) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM identities WHERE role = $1`, string(role)).Scan(&n)
	return n, err
}

// txView serves guarded reads inside a mutation's transaction. Counting a
// role locks the matching rows, which serializes two transactions that
// would each demote "one of two" remaining admins.
type txView struct {
	tx pgx.Tx
}

func (v txView) CountByRole(ctx context.Context, role model.Role) (int, error) {
	var n int
	err := v.tx.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT 1 FROM identities WHERE role = $1 FOR UPDATE
		) locked`, string(role)).Scan(&n)
	return n, err
}

// mutate locks the row selected by where/arg, applies fn and persists the
// record, all in one transaction. notFound is returned when no row matches.
func (s *Identities) mutate(ctx context.Context, where string, arg any, notFound error, fn identity.MutateFunc) (*model.Identity, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE `+where+` FOR UPDATE`, arg)
	rec, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}

	if err := fn(ctx, txView{tx}, rec); err != nil {
		return nil, err
	}

	var pendingRole string
	if rec.PendingRole != "" {
		pendingRole = string(rec.PendingRole)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE identities SET
			name = $2, email = $3, password_hash = $4, role = $5,
			enabled = $6, pending_token = $7, pending_role = $8,
			verify_code = $9, reset_token = $10, mobile = $11,
			avatar_url = $12, last_login_at = $13
		WHERE id = $1`,
		rec.ID, rec.Name, identity.NormalizeEmail(rec.Email), rec.PasswordHash,
		string(rec.Role), rec.Enabled, rec.PendingToken, pendingRole,
		rec.VerifyCode, rec.ResetToken, rec.Mobile, rec.AvatarURL,
		timestamptz(rec.LastLoginAt),
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Identities) Mutate(ctx context.Context, email string, fn identity.MutateFunc) (*model.Identity, error) {
	return s.mutate(ctx, "email = $1", identity.NormalizeEmail(email), identity.ErrUserNotFound, fn)
}

func (s *Identities) MutateByToken(ctx context.Context, token string, fn identity.MutateFunc) (*model.Identity, error) {
	if token == "" {
		return nil, identity.ErrTokenNotFound
	}
	return s.mutate(ctx, "pending_token = $1", token, identity.ErrTokenNotFound, fn)
}

func (s *Identities) MutateByVerifyCode(ctx context.Context, code string, fn identity.MutateFunc) (*model.Identity, error) {
	if code == "" {
		return nil, identity.ErrCodeNotFound
	}
	return s.mutate(ctx, "verify_code = $1", code, identity.ErrCodeNotFound, fn)
}

func (s *Identities) MutateByResetToken(ctx context.Context, token string, fn identity.MutateFunc) (*model.Identity, error) {
	if token == "" {
		return nil, identity.ErrTokenNotFound
	}
	return s.mutate(ctx, "reset_token = $1", token, identity.ErrTokenNotFound, fn)
}

func (s *Identities) Delete(ctx context.Context, id int64, guard identity.MutateFunc) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1 FOR UPDATE`, id)
	rec, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.ErrUserNotFound
		}
		return err
	}

	if guard != nil {
		if err := guard(ctx, txView{tx}, rec); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
