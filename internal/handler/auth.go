package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coverledger/internal/identity"
)

// AuthHandler exposes login, registration and the account lifecycle
// endpoints on the data tier.
type AuthHandler struct {
	BaseHandler
	verifier *identity.Verifier
	accounts *identity.Accounts
}

func NewAuthHandler(logger *slog.Logger, verifier *identity.Verifier, accounts *identity.Accounts) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		verifier:    verifier,
		accounts:    accounts,
	}
}

// Login verifies credentials and returns the identity with its role. The
// failure message is identical for an unknown email and a wrong password;
// only an unverified account is distinguished, and only after the
// password matched.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	rec, err := h.verifier.Verify(r.Context(), input.Email, input.Password)
	switch {
	case errors.Is(err, identity.ErrAuthenticationFailed):
		h.errorResponse(w, r, http.StatusUnauthorized, identity.ErrAuthenticationFailed.Error())
	case errors.Is(err, identity.ErrAccountNotVerified):
		h.errorResponse(w, r, http.StatusUnauthorized, identity.ErrAccountNotVerified.Error())
	case err != nil:
		h.serverErrorResponse(w, r, err)
	default:
		_ = h.writeJSON(w, http.StatusOK, envelope{"user": rec}, nil)
	}
}

// Register creates a new, disabled account and kicks off email
// verification.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Mobile   string `json:"mobile"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Email == "" || input.Password == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	rec, err := h.accounts.Register(r.Context(), input.Name, input.Email, input.Password, input.Mobile)
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		h.errorResponse(w, r, http.StatusConflict, identity.ErrEmailTaken.Error())
	case err != nil:
		h.serverErrorResponse(w, r, err)
	default:
		_ = h.writeJSON(w, http.StatusCreated, envelope{"user": rec}, nil)
	}
}

// Verify activates the account carrying the verification code.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	err := h.accounts.VerifyAccount(r.Context(), code)
	switch {
	case errors.Is(err, identity.ErrCodeNotFound):
		h.errorResponse(w, r, http.StatusBadRequest, "invalid verification code")
	case err != nil:
		h.serverErrorResponse(w, r, err)
	default:
		_ = h.writeJSON(w, http.StatusOK, envelope{"message": "account verified"}, nil)
	}
}

// ForgotPassword starts password recovery. The response is the same
// whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), input.Email); err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	_ = h.writeJSON(w, http.StatusOK, envelope{"message": "recovery email sent"}, nil)
}

// ResetPassword consumes a reset token and stores the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := h.readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Password == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "password must not be empty")
		return
	}

	err := h.accounts.ResetPassword(r.Context(), input.Token, input.Password)
	switch {
	case errors.Is(err, identity.ErrTokenNotFound):
		h.errorResponse(w, r, http.StatusBadRequest, "invalid or expired token")
	case err != nil:
		h.serverErrorResponse(w, r, err)
	default:
		_ = h.writeJSON(w, http.StatusOK, envelope{"message": "password reset"}, nil)
	}
}
