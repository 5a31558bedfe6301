package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coverledger/internal/model"
)

type Tickets struct {
	db *pgxpool.Pool
}

func NewTickets(db *pgxpool.Pool) *Tickets {
	return &Tickets{db: db}
}

func (s *Tickets) Create(ctx context.Context, t *model.Ticket) error {
	t.Status = model.TicketOpen
	return s.db.QueryRow(ctx, `
		INSERT INTO tickets (user_id, subject, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		t.UserID, t.Subject, t.Message, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
}

func (s *Tickets) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, subject, message, answer, status, created_at
		FROM tickets WHERE id = $1`, id,
	).Scan(&t.ID, &t.UserID, &t.Subject, &t.Message, &t.Answer, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByUser returns one identity's tickets, or every ticket when userID
// is 0 (administrative view).
func (s *Tickets) ListByUser(ctx context.Context, userID int64) ([]model.Ticket, error) {
	query := `
		SELECT id, user_id, subject, message, answer, status, created_at
		FROM tickets`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Ticket
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.Subject, &t.Message,
			&t.Answer, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Answer records an administrative reply and marks the ticket answered.
func (s *Tickets) Answer(ctx context.Context, id int64, answer string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE tickets SET answer = $2, status = $3 WHERE id = $1`,
		id, answer, model.TicketAnswered)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
