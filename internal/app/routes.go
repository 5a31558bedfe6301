package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/coverledger/internal/handler"
	"github.com/coverledger/internal/middleware"
	"github.com/coverledger/internal/model"
	"github.com/coverledger/internal/trust"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(trust.Authenticate(app.signer, app.identities, app.logger))

	r.Get("/api/health", handler.Health(app.db))

	// Credential endpoints are rate limited to slow guessing.
	credentialLimit := middleware.RateLimit(rate.Limit(1), 5)

	authHandler := handler.NewAuthHandler(app.logger, app.verifier, app.accounts)
	r.Group(func(r chi.Router) {
		r.Use(credentialLimit)
		r.Post("/api/auth/login", authHandler.Login)
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/api/auth/reset-password", authHandler.ResetPassword)
	})
	r.Get("/api/auth/verify", authHandler.Verify)

	usersHandler := handler.NewUsersHandler(app.logger, app.identities, app.coordinator)

	// Token-credentialed approval endpoints. The emailed token is the
	// only credential; no principal is required.
	r.Group(func(r chi.Router) {
		r.Use(credentialLimit)
		r.Post("/api/role-approval/approve", usersHandler.ApproveRole)
		r.Post("/api/role-approval/reject", usersHandler.RejectRole)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.With(trust.RequireRole(model.RoleAdmin)).Get("/", usersHandler.List)
		r.With(trust.RequireRole(model.RoleAdmin)).Delete("/{id}", usersHandler.Delete)

		r.Group(func(r chi.Router) {
			r.Use(trust.RequireAuth())
			r.Get("/{id}", usersHandler.Get)
			r.Get("/email/{email}", usersHandler.GetByEmail)
			r.Patch("/{id}", usersHandler.Update)
			r.With(credentialLimit).Post("/{id}/role-request", usersHandler.RequestRole)
		})
	})

	policiesHandler := handler.NewPoliciesHandler(app.logger, app.policies)
	reportHandler := handler.NewReportHandler(app.logger, app.policies, app.identities)
	r.Route("/api/policies", func(r chi.Router) {
		r.Use(trust.RequireAuth())
		r.Get("/", policiesHandler.List)
		r.Post("/", policiesHandler.Create)
		r.Get("/{id}", policiesHandler.Get)
		r.Patch("/{id}", policiesHandler.Update)
		r.Delete("/{id}", policiesHandler.Delete)

		r.Post("/{id}/claims", policiesHandler.AddClaim)
		r.Post("/{id}/beneficiaries", policiesHandler.AddBeneficiary)
		r.Delete("/{id}/beneficiaries/{beneficiaryID}", policiesHandler.DeleteBeneficiary)
		r.Post("/{id}/payments", policiesHandler.AddPayment)
		r.Get("/{id}/payments", policiesHandler.ListPayments)
		r.Get("/{id}/statement", reportHandler.PolicyStatement)
	})
	r.With(trust.RequireRole(model.RoleAdmin, model.RoleManager)).
		Post("/api/claims/{claimID}/review", policiesHandler.ReviewClaim)

	ticketsHandler := handler.NewTicketsHandler(app.logger, app.tickets, app.identities, app.mailer)
	r.Route("/api/tickets", func(r chi.Router) {
		r.Use(trust.RequireAuth())
		r.Get("/", ticketsHandler.List)
		r.Post("/", ticketsHandler.Create)
		r.Get("/{id}", ticketsHandler.Get)
		r.With(trust.RequireRole(model.RoleAdmin, model.RoleManager)).
			Post("/{id}/answer", ticketsHandler.Answer)
	})

	uploadHandler := handler.NewUploadHandler(app.logger, app.identities, app.config.UploadDir)
	r.With(trust.RequireAuth()).Post("/api/uploads/avatar", uploadHandler.Avatar)
	r.Handle("/uploads/*", handler.ServeUploads(app.config.UploadDir))

	return r
}
