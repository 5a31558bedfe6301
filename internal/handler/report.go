package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coverledger/internal/report"
	"github.com/coverledger/internal/store"
	"github.com/coverledger/internal/trust"
)

type ReportHandler struct {
	BaseHandler
	policies   *store.Policies
	identities IdentityReader
}

func NewReportHandler(logger *slog.Logger, policies *store.Policies, identities IdentityReader) *ReportHandler {
	return &ReportHandler{BaseHandler: BaseHandler{Logger: logger}, policies: policies, identities: identities}
}

// PolicyStatement streams a PDF statement for one policy. Access follows
// the same owner-or-admin rule as the policy endpoints.
func (h *ReportHandler) PolicyStatement(w http.ResponseWriter, r *http.Request) {
	policies := &PoliciesHandler{BaseHandler: h.BaseHandler, policies: h.policies}
	policy, ok := policies.ownedPolicy(w, r)
	if !ok {
		return
	}

	var err error
	if policy.Claims, err = h.policies.ListClaims(r.Context(), policy.ID); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	payments, err := h.policies.ListPayments(r.Context(), policy.ID)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	holder := ""
	if owner, err := h.identities.GetByID(r.Context(), policy.UserID); err == nil {
		holder = owner.Name
	} else if p := trust.PrincipalFromContext(r.Context()); p != nil {
		holder = p.Email
	}

	pdf, err := report.PolicyStatement(holder, policy, payments)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=policy-%d.pdf", policy.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
