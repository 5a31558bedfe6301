// Package app wires the data-owning service together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/coverledger/internal/config"
	"github.com/coverledger/internal/identity"
	"github.com/coverledger/internal/mailer"
	"github.com/coverledger/internal/store"
	"github.com/coverledger/internal/trust"
)

type App struct {
	config *config.API
	logger *slog.Logger
	db     *pgxpool.Pool

	identities  identity.Store
	policies    *store.Policies
	tickets     *store.Tickets
	mailer      *mailer.Mailer
	signer      *trust.Signer
	verifier    *identity.Verifier
	accounts    *identity.Accounts
	coordinator *identity.Coordinator
}

func (app *App) Close() {
	app.db.Close()
}

func New() (*App, error) {
	cfg, err := config.LoadAPI()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)

	ctx := context.Background()
	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	identities := store.NewIdentities(pool)

	m := mailer.New(&mailer.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		User:        cfg.SMTPUser,
		Pass:        cfg.SMTPPass,
		FromName:    cfg.SMTPFromName,
		FromAddress: cfg.SMTPFromEmail,
		AdminEmail:  cfg.AdminEmail,
	})

	guard := identity.NewGuard(cfg.SuperAdminEmail)
	coordinator := identity.NewCoordinator(identities, guard, m, cfg.WebBaseURL, logger)
	accounts := identity.NewAccounts(identities, m, cfg.WebBaseURL, logger)

	identity.SeedSuperAdmin(ctx, identities, cfg.SuperAdminEmail, cfg.SuperAdminPassword, logger)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          pool,
		identities:  identities,
		policies:    store.NewPolicies(pool),
		tickets:     store.NewTickets(pool),
		mailer:      m,
		signer:      trust.NewSigner(cfg.TrustSecret, trust.DefaultTTL),
		verifier:    identity.NewVerifier(identities),
		accounts:    accounts,
		coordinator: coordinator,
	}, nil
}

func (app *App) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting api server", "addr", srv.Addr, "env", app.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("server failed", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		app.logger.Info("shutting down api server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped api server")
	return nil
}

func newLogger(cfg *config.API) *slog.Logger {
	logLevel := slog.LevelInfo

	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	slog.SetDefault(logger)
	return logger
}
