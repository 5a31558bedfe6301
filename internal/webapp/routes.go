package webapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/coverledger/internal/handler"
	"github.com/coverledger/internal/middleware"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(app.loadSession)

	loginLimit := middleware.RateLimit(rate.Limit(1), 5)

	r.Get("/health", handler.Health(nil))

	r.Get("/login", app.loginPage)
	r.With(loginLimit).Post("/login", app.login)
	r.Get("/register", app.registerPage)
	r.With(loginLimit).Post("/register", app.register)
	r.Get("/verify", app.verifyAccount)
	r.Get("/forgot-password", app.forgotPage)
	r.With(loginLimit).Post("/forgot-password", app.forgotPassword)
	r.Get("/reset-password", app.resetPage)
	r.With(loginLimit).Post("/reset-password", app.resetPassword)
	r.Get("/logout", app.logout)

	// Emailed decision links. The token in the query is the credential;
	// the administrator clicking does not need a session here.
	r.Get("/role-approval/approve", app.approveRole)
	r.Get("/role-approval/reject", app.rejectRole)

	r.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Get("/", app.dashboard)
		r.Post("/policies", app.createPolicy)
		r.Get("/policies/{id}", app.policyPage)
		r.Post("/policies/{id}/claims", app.fileClaim)
		r.Post("/policies/{id}/beneficiaries", app.addBeneficiary)
		r.Post("/policies/{id}/payments", app.recordPayment)
		r.Get("/policies/{id}/statement", app.policyStatement)

		r.Get("/tickets", app.ticketsPage)
		r.Post("/tickets", app.openTicket)
		r.Get("/tickets/{id}", app.ticketPage)
		r.Post("/tickets/{id}/answer", app.answerTicket)

		r.Get("/profile", app.profilePage)
		r.Post("/profile", app.updateProfile)
		r.Post("/profile/role-request", app.requestRole)

		r.Get("/users", app.usersPage)
		r.Post("/users/{id}/delete", app.deleteUser)
	})

	return r
}
