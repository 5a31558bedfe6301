package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coverledger/internal/model"
)

type userEnvelope struct {
	User *model.Identity `json:"user"`
}

// Login verifies credentials against the data service and returns the
// authenticated identity.
func (c *Client) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	var env userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, &env)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) Register(ctx context.Context, name, email, password, mobile string) (*model.Identity, error) {
	var env userEnvelope
	err := c.do(ctx, http.MethodPost, "/api/auth/register",
		map[string]string{"name": name, "email": email, "password": password, "mobile": mobile}, &env)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) VerifyAccount(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodGet, "/api/auth/verify?code="+url.QueryEscape(code), nil, nil)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/forgot-password",
		map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password",
		map[string]string{"token": token, "password": password}, nil)
}

// --- Users ---

func (c *Client) ListUsers(ctx context.Context) ([]model.Identity, error) {
	var env struct {
		Users []model.Identity `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &env); err != nil {
		return nil, err
	}
	return env.Users, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*model.Identity, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*model.Identity, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/users/email/"+url.PathEscape(email), nil, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

// UpdateUser patches profile fields; nil pointers leave the field as is.
func (c *Client) UpdateUser(ctx context.Context, id int64, name, mobile *string) (*model.Identity, error) {
	body := map[string]any{}
	if name != nil {
		body["name"] = *name
	}
	if mobile != nil {
		body["mobile"] = *mobile
	}
	var env userEnvelope
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/users/%d", id), body, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/users/%d", id), nil, nil)
}

// RequestRoleChange records a pending role request for the user.
func (c *Client) RequestRoleChange(ctx context.Context, id int64, role string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/users/%d/role-request", id),
		map[string]string{"role": role}, nil)
}

// ApproveRole resolves a pending role request by its emailed token.
func (c *Client) ApproveRole(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost,
		"/api/role-approval/approve?token="+url.QueryEscape(token), nil, nil)
}

func (c *Client) RejectRole(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost,
		"/api/role-approval/reject?token="+url.QueryEscape(token), nil, nil)
}

// --- Policies ---

type policyEnvelope struct {
	Policy *model.Policy `json:"policy"`
}

func (c *Client) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	var env struct {
		Policies []model.Policy `json:"policies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/policies", nil, &env); err != nil {
		return nil, err
	}
	return env.Policies, nil
}

func (c *Client) CreatePolicy(ctx context.Context, p *model.Policy) (*model.Policy, error) {
	var env policyEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/policies", p, &env); err != nil {
		return nil, err
	}
	return env.Policy, nil
}

func (c *Client) GetPolicy(ctx context.Context, id int64) (*model.Policy, error) {
	var env policyEnvelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/policies/%d", id), nil, &env); err != nil {
		return nil, err
	}
	return env.Policy, nil
}

func (c *Client) DeletePolicy(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/policies/%d", id), nil, nil)
}

func (c *Client) FileClaim(ctx context.Context, policyID int64, description string, amount float64) (*model.Claim, error) {
	var env struct {
		Claim *model.Claim `json:"claim"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/policies/%d/claims", policyID),
		map[string]any{"description": description, "amount": amount}, &env)
	if err != nil {
		return nil, err
	}
	return env.Claim, nil
}

func (c *Client) AddBeneficiary(ctx context.Context, policyID int64, b *model.Beneficiary) (*model.Beneficiary, error) {
	var env struct {
		Beneficiary *model.Beneficiary `json:"beneficiary"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/policies/%d/beneficiaries", policyID), b, &env)
	if err != nil {
		return nil, err
	}
	return env.Beneficiary, nil
}

func (c *Client) RecordPayment(ctx context.Context, policyID int64, amount float64, method string) (*model.Payment, error) {
	var env struct {
		Payment *model.Payment `json:"payment"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/policies/%d/payments", policyID),
		map[string]any{"amount": amount, "method": method}, &env)
	if err != nil {
		return nil, err
	}
	return env.Payment, nil
}

// PolicyStatement downloads the PDF statement for one policy.
func (c *Client) PolicyStatement(ctx context.Context, policyID int64) ([]byte, string, error) {
	return c.Raw(ctx, fmt.Sprintf("/api/policies/%d/statement", policyID))
}

// --- Tickets ---

type ticketEnvelope struct {
	Ticket *model.Ticket `json:"ticket"`
}

func (c *Client) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var env struct {
		Tickets []model.Ticket `json:"tickets"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tickets", nil, &env); err != nil {
		return nil, err
	}
	return env.Tickets, nil
}

func (c *Client) OpenTicket(ctx context.Context, subject, message string) (*model.Ticket, error) {
	var env ticketEnvelope
	err := c.do(ctx, http.MethodPost, "/api/tickets",
		map[string]string{"subject": subject, "message": message}, &env)
	if err != nil {
		return nil, err
	}
	return env.Ticket, nil
}

func (c *Client) AnswerTicket(ctx context.Context, id int64, answer string) (*model.Ticket, error) {
	var env ticketEnvelope
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tickets/%d/answer", id),
		map[string]string{"answer": answer}, &env)
	if err != nil {
		return nil, err
	}
	return env.Ticket, nil
}
