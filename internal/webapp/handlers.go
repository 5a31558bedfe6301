package webapp

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coverledger/internal/apiclient"
	"github.com/coverledger/internal/model"
)

func (app *App) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Templates.ExecuteTemplate(w, name, data); err != nil {
		app.logger.Error("template error", "template", name, "err", err)
	}
}

// actingCtx returns a context asserting the signed-in user to the data
// service.
func actingCtx(r *http.Request) context.Context {
	ctx := r.Context()
	if sess := SessionFromContext(ctx); sess != nil {
		return apiclient.AsUser(ctx, sess.Email)
	}
	return ctx
}

// apiMessage extracts a user-facing message from a data service error.
func apiMessage(err error) string {
	if apiErr, ok := err.(*apiclient.APIError); ok {
		return apiErr.Message
	}
	return "The service is temporarily unavailable. Please try again."
}

// --- Authentication ---

func (app *App) loginPage(w http.ResponseWriter, r *http.Request) {
	if SessionFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	app.render(w, "login.html", nil)
}

func (app *App) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	user, err := app.api.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		app.render(w, "login.html", map[string]any{"Error": apiMessage(err)})
		return
	}

	sess := app.sessions.Create(user)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   app.config.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Expires:  sess.ExpiresAt,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *App) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		app.sessions.Destroy(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:    SessionCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (app *App) registerPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, "register.html", nil)
}

func (app *App) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	_, err := app.api.Register(r.Context(), r.FormValue("name"), r.FormValue("email"),
		r.FormValue("password"), r.FormValue("mobile"))
	if err != nil {
		app.render(w, "register.html", map[string]any{"Error": apiMessage(err)})
		return
	}
	app.render(w, "message.html", map[string]any{
		"Title":   "Almost there",
		"Message": "Check your email for a verification link before signing in.",
	})
}

func (app *App) verifyAccount(w http.ResponseWriter, r *http.Request) {
	err := app.api.VerifyAccount(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		app.render(w, "message.html", map[string]any{
			"Title": "Verification failed", "Error": apiMessage(err),
		})
		return
	}
	app.render(w, "message.html", map[string]any{
		"Title":   "Account verified",
		"Message": "Your account is active. You can sign in now.",
	})
}

func (app *App) forgotPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, "forgot.html", nil)
}

func (app *App) forgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	// Same response whether or not the address is registered.
	_ = app.api.ForgotPassword(r.Context(), r.FormValue("email"))
	app.render(w, "forgot.html", map[string]any{
		"Message": "If that address is registered, a recovery email is on its way.",
	})
}

func (app *App) resetPage(w http.ResponseWriter, r *http.Request) {
	app.render(w, "reset.html", map[string]any{"Token": r.URL.Query().Get("token")})
}

func (app *App) resetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	token := r.FormValue("token")
	password := r.FormValue("password")
	if password == "" || password != r.FormValue("confirm") {
		app.render(w, "reset.html", map[string]any{
			"Token": token, "Error": "Passwords do not match or are empty.",
		})
		return
	}

	if err := app.api.ResetPassword(r.Context(), token, password); err != nil {
		app.render(w, "reset.html", map[string]any{"Token": token, "Error": apiMessage(err)})
		return
	}
	app.render(w, "message.html", map[string]any{
		"Title":   "Password reset",
		"Message": "Your password has been changed. Sign in with the new one.",
	})
}

// --- Role approval click-throughs ---

func (app *App) approveRole(w http.ResponseWriter, r *http.Request) {
	err := app.api.ApproveRole(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		app.render(w, "message.html", map[string]any{
			"Title": "Role change", "Error": apiMessage(err),
		})
		return
	}
	app.render(w, "message.html", map[string]any{
		"Title":   "Role change approved",
		"Message": "The requested role is now in effect. The user has been notified.",
	})
}

func (app *App) rejectRole(w http.ResponseWriter, r *http.Request) {
	err := app.api.RejectRole(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		app.render(w, "message.html", map[string]any{
			"Title": "Role change", "Error": apiMessage(err),
		})
		return
	}
	app.render(w, "message.html", map[string]any{
		"Title":   "Role change rejected",
		"Message": "The request has been dismissed. The user keeps their current role.",
	})
}

// --- Policies ---

func (app *App) dashboard(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	policies, err := app.api.ListPolicies(actingCtx(r))

	data := map[string]any{"Session": sess, "Policies": policies}
	if err != nil {
		data["Error"] = apiMessage(err)
	}
	app.render(w, "dashboard.html", data)
}

func (app *App) createPolicy(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	premium, _ := strconv.ParseFloat(r.FormValue("premium"), 64)
	start, _ := time.Parse("2006-01-02", r.FormValue("start_date"))
	end, _ := time.Parse("2006-01-02", r.FormValue("end_date"))

	_, err := app.api.CreatePolicy(actingCtx(r), &model.Policy{
		Type:      r.FormValue("type"),
		Company:   r.FormValue("company"),
		Premium:   premium,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		sess := SessionFromContext(r.Context())
		policies, _ := app.api.ListPolicies(actingCtx(r))
		app.render(w, "dashboard.html", map[string]any{
			"Session": sess, "Policies": policies, "Error": apiMessage(err),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *App) policyPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	policy, err := app.api.GetPolicy(actingCtx(r), id)
	if err != nil {
		app.render(w, "message.html", map[string]any{"Title": "Policy", "Error": apiMessage(err)})
		return
	}
	app.render(w, "policy.html", map[string]any{
		"Session": SessionFromContext(r.Context()), "Policy": policy,
	})
}

func (app *App) fileClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	amount, _ := strconv.ParseFloat(r.FormValue("amount"), 64)
	_, _ = app.api.FileClaim(actingCtx(r), id, r.FormValue("description"), amount)
	http.Redirect(w, r, "/policies/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (app *App) addBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	percentage, _ := strconv.ParseFloat(r.FormValue("percentage"), 64)
	_, _ = app.api.AddBeneficiary(actingCtx(r), id, &model.Beneficiary{
		Name:       r.FormValue("name"),
		Relation:   r.FormValue("relation"),
		Percentage: percentage,
	})
	http.Redirect(w, r, "/policies/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (app *App) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	amount, _ := strconv.ParseFloat(r.FormValue("amount"), 64)
	_, _ = app.api.RecordPayment(actingCtx(r), id, amount, r.FormValue("method"))
	http.Redirect(w, r, "/policies/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (app *App) policyStatement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	body, contentType, err := app.api.PolicyStatement(actingCtx(r), id)
	if err != nil {
		app.render(w, "message.html", map[string]any{"Title": "Statement", "Error": apiMessage(err)})
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=policy-"+strconv.FormatInt(id, 10)+".pdf")
	_, _ = w.Write(body)
}

// --- Tickets ---

func (app *App) ticketsPage(w http.ResponseWriter, r *http.Request) {
	tickets, err := app.api.ListTickets(actingCtx(r))
	data := map[string]any{"Session": SessionFromContext(r.Context()), "Tickets": tickets}
	if err != nil {
		data["Error"] = apiMessage(err)
	}
	app.render(w, "tickets.html", data)
}

func (app *App) openTicket(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	_, _ = app.api.OpenTicket(actingCtx(r), r.FormValue("subject"), r.FormValue("message"))
	http.Redirect(w, r, "/tickets", http.StatusSeeOther)
}

func (app *App) ticketPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	// Ticket detail rides on the list; the data service scopes it to the
	// caller already.
	tickets, err := app.api.ListTickets(actingCtx(r))
	if err != nil {
		app.render(w, "message.html", map[string]any{"Title": "Ticket", "Error": apiMessage(err)})
		return
	}
	var ticket *model.Ticket
	for i := range tickets {
		if tickets[i].ID == id {
			ticket = &tickets[i]
			break
		}
	}
	if ticket == nil {
		http.NotFound(w, r)
		return
	}

	sess := SessionFromContext(r.Context())
	canAnswer := sess.Role == model.RoleAdmin || sess.Role == model.RoleManager
	app.render(w, "ticket.html", map[string]any{
		"Session": sess, "Ticket": ticket, "CanAnswer": canAnswer,
	})
}

func (app *App) answerTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	_, _ = app.api.AnswerTicket(actingCtx(r), id, r.FormValue("answer"))
	http.Redirect(w, r, "/tickets/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

// --- Profile ---

func (app *App) profilePage(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	user, err := app.api.GetUser(actingCtx(r), sess.UserID)
	if err != nil {
		app.render(w, "message.html", map[string]any{"Title": "Profile", "Error": apiMessage(err)})
		return
	}
	app.render(w, "profile.html", map[string]any{"Session": sess, "User": user})
}

func (app *App) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	sess := SessionFromContext(r.Context())
	name := r.FormValue("name")
	mobile := r.FormValue("mobile")

	user, err := app.api.UpdateUser(actingCtx(r), sess.UserID, &name, &mobile)
	if err != nil {
		app.render(w, "message.html", map[string]any{"Title": "Profile", "Error": apiMessage(err)})
		return
	}
	app.render(w, "profile.html", map[string]any{
		"Session": sess, "User": user, "Message": "Profile saved.",
	})
}

func (app *App) requestRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	sess := SessionFromContext(r.Context())

	err := app.api.RequestRoleChange(actingCtx(r), sess.UserID, r.FormValue("role"))
	user, uerr := app.api.GetUser(actingCtx(r), sess.UserID)
	if uerr != nil {
		app.render(w, "message.html", map[string]any{"Title": "Profile", "Error": apiMessage(uerr)})
		return
	}

	data := map[string]any{"Session": sess, "User": user}
	if err != nil {
		data["Error"] = apiMessage(err)
	} else {
		data["Message"] = "Role change requested. An administrator will review it."
	}
	app.render(w, "profile.html", data)
}

// --- Administration ---

func (app *App) usersPage(w http.ResponseWriter, r *http.Request) {
	app.renderUsers(w, r, "", "")
}

func (app *App) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := app.api.DeleteUser(actingCtx(r), id); err != nil {
		app.renderUsers(w, r, "", apiMessage(err))
		return
	}
	app.renderUsers(w, r, "User deleted.", "")
}

func (app *App) renderUsers(w http.ResponseWriter, r *http.Request, message, errMsg string) {
	users, err := app.api.ListUsers(actingCtx(r))
	data := map[string]any{
		"Session": SessionFromContext(r.Context()),
		"Users":   users,
	}
	if err != nil {
		errMsg = apiMessage(err)
	}
	if message != "" {
		data["Message"] = message
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	app.render(w, "users.html", data)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
