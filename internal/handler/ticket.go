package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/store"
	"github.com/coverledger/internal/trust"
)

// TicketNotifier is implemented by the mailer. Reply notifications are
// best effort and never fail the request.
type TicketNotifier interface {
	SendTicketReply(to, subject, answer string) error
}

// IdentityReader is the slice of the identity store the ticket handler
// needs to resolve a ticket owner's email.
type IdentityReader interface {
	GetByID(ctx context.Context, id int64) (*model.Identity, error)
}

type TicketsHandler struct {
	BaseHandler
	tickets    *store.Tickets
	identities IdentityReader
	notifier   TicketNotifier
}

func NewTicketsHandler(logger *slog.Logger, tickets *store.Tickets, identities IdentityReader, notifier TicketNotifier) *TicketsHandler {
	return &TicketsHandler{
		BaseHandler: BaseHandler{Logger: logger},
		tickets:     tickets,
		identities:  identities,
		notifier:    notifier,
	}
}

// List returns the caller's tickets. Administrators and managers see
// every ticket so they can answer them.
func (h *TicketsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := trust.PrincipalFromContext(r.Context())

	ownerID := p.ID
	if p.Role == model.RoleAdmin || p.Role == model.RoleManager {
		ownerID = 0
	}
	out, err := h.tickets.ListByUser(r.Context(), ownerID)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"tickets": out}, nil)
}

func (h *TicketsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Subject == "" || input.Message == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "subject and message are required")
		return
	}

	p := trust.PrincipalFromContext(r.Context())
	ticket := &model.Ticket{UserID: p.ID, Subject: input.Subject, Message: input.Message}
	if err := h.tickets.Create(r.Context(), ticket); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusCreated, envelope{"ticket": ticket}, nil)
}

func (h *TicketsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.visibleTicket(w, r)
	if !ok {
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"ticket": ticket}, nil)
}

// Answer records a staff reply and emails the ticket owner.
func (h *TicketsHandler) Answer(w http.ResponseWriter, r *http.Request) {
	ticket, ok := h.visibleTicket(w, r)
	if !ok {
		return
	}

	var input struct {
		Answer string `json:"answer"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Answer == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "answer is required")
		return
	}

	if err := h.tickets.Answer(r.Context(), ticket.ID, input.Answer); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.notFoundResponse(w, r)
			return
		}
		h.serverErrorResponse(w, r, err)
		return
	}

	if owner, err := h.identities.GetByID(r.Context(), ticket.UserID); err == nil {
		if err := h.notifier.SendTicketReply(owner.Email, ticket.Subject, input.Answer); err != nil {
			h.Logger.Warn("ticket reply notification failed", "error", err, "ticket", ticket.ID)
		}
	}

	ticket.Answer = input.Answer
	ticket.Status = model.TicketAnswered
	_ = h.writeJSON(w, http.StatusOK, envelope{"ticket": ticket}, nil)
}

// visibleTicket loads the ticket and checks the caller owns it or holds a
// staff role.
func (h *TicketsHandler) visibleTicket(w http.ResponseWriter, r *http.Request) (*model.Ticket, bool) {
	id, err := idParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return nil, false
	}

	ticket, err := h.tickets.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.notFoundResponse(w, r)
		return nil, false
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return nil, false
	}

	p := trust.PrincipalFromContext(r.Context())
	if p == nil {
		h.forbiddenResponse(w, r)
		return nil, false
	}
	if p.ID != ticket.UserID && p.Role != model.RoleAdmin && p.Role != model.RoleManager {
		h.forbiddenResponse(w, r)
		return nil, false
	}
	return ticket, true
}
