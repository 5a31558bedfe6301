package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/store"
	"github.com/coverledger/internal/trust"
)

// PoliciesHandler exposes policy CRUD plus the nested claim, beneficiary
// and payment records.
type PoliciesHandler struct {
	BaseHandler
	policies *store.Policies
}

func NewPoliciesHandler(logger *slog.Logger, policies *store.Policies) *PoliciesHandler {
	return &PoliciesHandler{BaseHandler: BaseHandler{Logger: logger}, policies: policies}
}

// List returns the caller's policies; administrators see every policy.
func (h *PoliciesHandler) List(w http.ResponseWriter, r *http.Request) {
	p := trust.PrincipalFromContext(r.Context())

	ownerID := p.ID
	if p.Role == model.RoleAdmin {
		ownerID = 0
	}
	out, err := h.policies.ListByUser(r.Context(), ownerID)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"policies": out}, nil)
}

func (h *PoliciesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Type      string    `json:"type"`
		Company   string    `json:"company"`
		Premium   float64   `json:"premium"`
		StartDate time.Time `json:"startDate"`
		EndDate   time.Time `json:"endDate"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Type == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "policy type is required")
		return
	}

	p := trust.PrincipalFromContext(r.Context())
	policy := &model.Policy{
		UserID:    p.ID,
		Type:      input.Type,
		Company:   input.Company,
		Premium:   input.Premium,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	if err := h.policies.Create(r.Context(), policy); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusCreated, envelope{"policy": policy}, nil)
}

// Get returns one policy with its claims and beneficiaries attached.
func (h *PoliciesHandler) Get(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.ownedPolicy(w, r)
	if !ok {
		return
	}

	var err error
	if policy.Claims, err = h.policies.ListClaims(r.Context(), policy.ID); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	if policy.Beneficiaries, err = h.policies.ListBeneficiaries(r.Context(), policy.ID); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"policy": policy}, nil)
}

func (h *PoliciesHandler) Update(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.ownedPolicy(w, r)
	if !ok {
		return
	}

	var input struct {
		Type      *string    `json:"type"`
		Company   *string    `json:"company"`
		Premium   *float64   `json:"premium"`
		StartDate *time.Time `json:"startDate"`
		EndDate   *time.Time `json:"endDate"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Type != nil {
		policy.Type = *input.Type
	}
	if input.Company != nil {
		policy.Company = *input.Company
	}
	if input.Premium != nil {
		policy.Premium = *input.Premium
	}
	if input.StartDate != nil {
		policy.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		policy.EndDate = *input.EndDate
	}

	if err := h.policies.Update(r.Context(), policy); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"policy": policy}, nil)
}

func (h *PoliciesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.ownedPolicy(w, r)
	if !ok {
		return
	}
	if err := h.policies.Delete(r.Context(), policy.ID); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"message": "policy deleted"}, nil)
}

// AddClaim files a claim against a policy.
func (h *PoliciesHandler) AddClaim(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.ownedPolicy(w, r)
	if !ok {
		return
	}

	var input struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	claim := &model.Claim{
		PolicyID:    policy.ID,
		Description: input.Description,
		Amount:      input.Amount,
		Status:      model.ClaimFiled,
	}
	if err := h.policies.AddClaim(r.Context(), claim); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusCreated, envelope{"claim": claim}, nil)
}

func (h *PoliciesHandler) AddBeneficiary(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.ownedPolicy(w, r)
	if !ok {
		return
	}

	var input struct {
		Name       string  `json:"name"`
		Relation   string  `json:"relation"`
		Percentage float64 `json:"percentage"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Name == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "beneficiary name is required")
		return
	}

	b := &model.Beneficiary{
		PolicyID:   policy.ID,
		Name:       input.Name,
		Relation:   input.Relation,
		Percentage: input.Percentage,
	}
	if err := h.policies.AddBeneficiary(r.Context(), b); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusCreated, envelope{"beneficiary": b}, nil)
}

func (h *PoliciesHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.ownedPolicy(w, r)
	if !ok {
		return
	}

	var input struct {
		Amount float64 `json:"amount"`
		Method string  `json:"method"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	payment := &model.Payment{PolicyID: policy.ID, Amount: input.Amount, Method: input.Method}
	if err := h.policies.AddPayment(r.Context(), payment); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusCreated, envelope{"payment": payment}, nil)
}

func (h *PoliciesHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.ownedPolicy(w, r)
	if !ok {
		return
	}
	out, err := h.policies.ListPayments(r.Context(), policy.ID)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"payments": out}, nil)
}

// ReviewClaim settles a filed claim. The route restricts this to
// administrators and managers.
func (h *PoliciesHandler) ReviewClaim(w http.ResponseWriter, r *http.Request) {
	claimID, err := int64Param(r, "claimID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Status != model.ClaimApproved && input.Status != model.ClaimRejected {
		h.errorResponse(w, r, http.StatusBadRequest, "status must be APPROVED or REJECTED")
		return
	}

	err = h.policies.UpdateClaimStatus(r.Context(), claimID, input.Status)
	if errors.Is(err, store.ErrNotFound) {
		h.notFoundResponse(w, r)
		return
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"message": "claim " + input.Status}, nil)
}

func (h *PoliciesHandler) DeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ownedPolicy(w, r); !ok {
		return
	}
	beneficiaryID, err := int64Param(r, "beneficiaryID")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	err = h.policies.DeleteBeneficiary(r.Context(), beneficiaryID)
	if errors.Is(err, store.ErrNotFound) {
		h.notFoundResponse(w, r)
		return
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"message": "beneficiary removed"}, nil)
}

// ownedPolicy loads the policy from the id route parameter and checks the
// caller owns it or is an admin. It writes the error response itself.
func (h *PoliciesHandler) ownedPolicy(w http.ResponseWriter, r *http.Request) (*model.Policy, bool) {
	id, err := idParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return nil, false
	}

	policy, err := h.policies.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.notFoundResponse(w, r)
		return nil, false
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return nil, false
	}
	if !callerMayAccess(r.Context(), policy.UserID) {
		h.forbiddenResponse(w, r)
		return nil, false
	}
	return policy, true
}
