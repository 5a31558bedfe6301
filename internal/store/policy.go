package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coverledger/internal/model"
)

// Policies is the keyed CRUD store for policies and their dependent rows
// (claims, beneficiaries, payments). Rows carry a foreign key to the
// owning identity; ownership checks live in the handlers.
type Policies struct {
	db *pgxpool.Pool
}

func NewPolicies(db *pgxpool.Pool) *Policies {
	return &Policies{db: db}
}

func (s *Policies) Create(ctx context.Context, p *model.Policy) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO policies (user_id, type, company, premium, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.UserID, p.Type, p.Company, p.Premium, p.StartDate, p.EndDate,
	).Scan(&p.ID, &p.CreatedAt)
}

func (s *Policies) GetByID(ctx context.Context, id int64) (*model.Policy, error) {
	var p model.Policy
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, type, company, premium, start_date, end_date, created_at
		FROM policies WHERE id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Type, &p.Company, &p.Premium,
		&p.StartDate, &p.EndDate, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser returns the policies owned by one identity. Pass 0 to list
// every policy (administrative view).
func (s *Policies) ListByUser(ctx context.Context, userID int64) ([]model.Policy, error) {
	query := `
		SELECT id, user_id, type, company, premium, start_date, end_date, created_at
		FROM policies`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Policy
	for rows.Next() {
		var p model.Policy
		if err := rows.Scan(&p.ID, &p.UserID, &p.Type, &p.Company, &p.Premium,
			&p.StartDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Policies) Update(ctx context.Context, p *model.Policy) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE policies SET type = $2, company = $3, premium = $4,
			start_date = $5, end_date = $6
		WHERE id = $1`,
		p.ID, p.Type, p.Company, p.Premium, p.StartDate, p.EndDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Policies) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Claims ---

func (s *Policies) AddClaim(ctx context.Context, c *model.Claim) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO claims (policy_id, description, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, filed_at`,
		c.PolicyID, c.Description, c.Amount, c.Status,
	).Scan(&c.ID, &c.FiledAt)
}

func (s *Policies) ListClaims(ctx context.Context, policyID int64) ([]model.Claim, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, policy_id, description, amount, status, filed_at
		FROM claims WHERE policy_id = $1 ORDER BY id`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Claim
	for rows.Next() {
		var c model.Claim
		if err := rows.Scan(&c.ID, &c.PolicyID, &c.Description, &c.Amount,
			&c.Status, &c.FiledAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Policies) UpdateClaimStatus(ctx context.Context, claimID int64, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE claims SET status = $2 WHERE id = $1`, claimID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Beneficiaries ---

func (s *Policies) AddBeneficiary(ctx context.Context, b *model.Beneficiary) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO beneficiaries (policy_id, name, relation, percentage)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		b.PolicyID, b.Name, b.Relation, b.Percentage,
	).Scan(&b.ID)
}

func (s *Policies) ListBeneficiaries(ctx context.Context, policyID int64) ([]model.Beneficiary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, policy_id, name, relation, percentage
		FROM beneficiaries WHERE policy_id = $1 ORDER BY id`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Beneficiary
	for rows.Next() {
		var b model.Beneficiary
		if err := rows.Scan(&b.ID, &b.PolicyID, &b.Name, &b.Relation, &b.Percentage); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Policies) DeleteBeneficiary(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM beneficiaries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Payments ---

func (s *Policies) AddPayment(ctx context.Context, p *model.Payment) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO payments (policy_id, amount, method)
		VALUES ($1, $2, $3)
		RETURNING id, paid_at`,
		p.PolicyID, p.Amount, p.Method,
	).Scan(&p.ID, &p.PaidAt)
}

func (s *Policies) ListPayments(ctx context.Context, policyID int64) ([]model.Payment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, policy_id, amount, method, paid_at
		FROM payments WHERE policy_id = $1 ORDER BY id`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.PolicyID, &p.Amount, &p.Method, &p.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
