package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/trust"
)

// UsersHandler exposes user management and the role-change workflow on
// the data tier.
type UsersHandler struct {
	BaseHandler
	store       identity.Store
	coordinator *identity.Coordinator
}

func NewUsersHandler(logger *slog.Logger, store identity.Store, coordinator *identity.Coordinator) *UsersHandler {
	return &UsersHandler{
		BaseHandler: BaseHandler{Logger: logger},
		store:       store,
		coordinator: coordinator,
	}
}

// List returns every identity. Admin only (enforced by the router).
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List(r.Context())
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"users": users}, nil)
}

// Get returns one identity. Non-admin callers only see themselves.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, identity.ErrUserNotFound) {
		h.notFoundResponse(w, r)
		return
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	if !callerMayAccess(r.Context(), rec.ID) {
		h.forbiddenResponse(w, r)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"user": rec}, nil)
}

// GetByEmail returns one identity by its email key.
func (h *UsersHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	rec, err := h.store.GetByEmail(r.Context(), email)
	if errors.Is(err, identity.ErrUserNotFound) {
		h.notFoundResponse(w, r)
		return
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	if !callerMayAccess(r.Context(), rec.ID) {
		h.forbiddenResponse(w, r)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"user": rec}, nil)
}

// Update edits an identity's profile fields (name, mobile, avatar).
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if !callerMayAccess(r.Context(), id) {
		h.forbiddenResponse(w, r)
		return
	}

	var input struct {
		Name      *string `json:"name"`
		Mobile    *string `json:"mobile"`
		AvatarURL *string `json:"avatarUrl"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, identity.ErrUserNotFound) {
		h.notFoundResponse(w, r)
		return
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	updated, err := h.store.Mutate(r.Context(), rec.Email, func(_ context.Context, _ identity.View, rec *model.Identity) error {
		if input.Name != nil {
			rec.Name = *input.Name
		}
		if input.Mobile != nil {
			rec.Mobile = *input.Mobile
		}
		if input.AvatarURL != nil {
			rec.AvatarURL = *input.AvatarURL
		}
		return nil
	})
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"user": updated}, nil)
}

// Delete removes an identity. The admin invariant guard runs inside the
// deletion; the super admin and the last admin cannot be removed.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	err = h.coordinator.DeleteUser(r.Context(), id)
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		h.notFoundResponse(w, r)
	case errors.Is(err, identity.ErrSuperAdminProtected),
		errors.Is(err, identity.ErrLastAdminProtected):
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		h.serverErrorResponse(w, r, err)
	default:
		_ = h.writeJSON(w, http.StatusOK, envelope{"message": "user deleted"}, nil)
	}
}

// RequestRole records a pending role-change request for the user and
// notifies the administrative contact. A new request replaces any
// pending one; the earlier token is permanently invalidated.
func (h *UsersHandler) RequestRole(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if !callerMayAccess(r.Context(), id) {
		h.forbiddenResponse(w, r)
		return
	}

	var input struct {
		Role string `json:"role"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	desired, err := model.ParseRole(input.Role)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, identity.ErrUserNotFound) {
		h.notFoundResponse(w, r)
		return
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	if err := h.coordinator.RequestChange(r.Context(), rec.Email, desired); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"message": "role change requested"}, nil)
}

// ApproveRole resolves a pending request by token. This endpoint is
// reachable without a principal: the token emailed to the administrator
// is the credential.
func (h *UsersHandler) ApproveRole(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	rec, err := h.coordinator.Approve(r.Context(), token)
	switch {
	case errors.Is(err, identity.ErrTokenNotFound),
		errors.Is(err, identity.ErrNoPendingRequest),
		errors.Is(err, identity.ErrLastAdminProtected),
		errors.Is(err, identity.ErrSuperAdminProtected):
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		h.serverErrorResponse(w, r, err)
	default:
		_ = h.writeJSON(w, http.StatusOK, envelope{
			"message": "role change approved",
			"email":   rec.Email,
			"role":    rec.Role,
		}, nil)
	}
}

// RejectRole clears a pending request by token without changing the role.
func (h *UsersHandler) RejectRole(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	rec, err := h.coordinator.Reject(r.Context(), token)
	switch {
	case errors.Is(err, identity.ErrTokenNotFound):
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
	case err != nil:
		h.serverErrorResponse(w, r, err)
	default:
		_ = h.writeJSON(w, http.StatusOK, envelope{
			"message": "role change rejected",
			"email":   rec.Email,
		}, nil)
	}
}

func idParam(r *http.Request) (int64, error) {
	return int64Param(r, "id")
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return id, nil
}

// callerMayAccess reports whether the effective principal is an admin or
// the owner of the target record.
func callerMayAccess(ctx context.Context, ownerID int64) bool {
	p := trust.PrincipalFromContext(ctx)
	if p == nil {
		return false
	}
	return p.Role == model.RoleAdmin || p.ID == ownerID
}
