package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// API holds the configuration for the data-owning service.
type API struct {
	Port string
	Env  string // development, production

	DatabaseURL string

	// TrustSecret signs and verifies the inter-service caller assertion.
	// Both tiers must share it.
	TrustSecret string

	// SuperAdminEmail is the designated account exempt from demotion and
	// deletion. Seeded on first boot with SuperAdminPassword.
	SuperAdminEmail    string
	SuperAdminPassword string

	// WebBaseURL is where emailed links (verification, reset,
	// approve/reject) point; that is the presentation tier.
	WebBaseURL string

	UploadDir string

	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFromName  string
	SMTPFromEmail string
	AdminEmail    string
}

// Web holds the configuration for the presentation-facing service.
type Web struct {
	Port string
	Env  string

	APIBaseURL  string
	TrustSecret string

	SecureCookies bool
}

// LoadAPI reads the API service configuration from flags and environment.
func LoadAPI() (*API, error) {
	_ = godotenv.Load()

	cfg := &API{}
	flag.StringVar(&cfg.Port, "port", getEnv("PORT", "8081"), "Server port")
	flag.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	flag.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "PostgreSQL connection string")
	flag.Parse()

	cfg.TrustSecret = getEnv("TRUST_SECRET", "")
	cfg.SuperAdminEmail = getEnv("SUPER_ADMIN_EMAIL", "")
	cfg.SuperAdminPassword = getEnv("SUPER_ADMIN_PASSWORD", "")
	cfg.WebBaseURL = getEnv("WEB_BASE_URL", "http://localhost:8080")
	cfg.UploadDir = getEnv("UPLOAD_DIR", "uploads")

	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.SMTPUser = getEnv("SMTP_USER", "")
	cfg.SMTPPass = getEnv("SMTP_PASS", "")
	cfg.SMTPFromName = getEnv("SMTP_FROM_NAME", "CoverLedger")
	cfg.SMTPFromEmail = getEnv("SMTP_FROM_EMAIL", "")
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *API) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.TrustSecret) < 32 {
		return fmt.Errorf("TRUST_SECRET must be at least 32 characters")
	}
	if c.SuperAdminEmail == "" {
		return fmt.Errorf("SUPER_ADMIN_EMAIL is required")
	}
	return nil
}

func (c *API) IsDevelopment() bool { return c.Env == "development" }

// LoadWeb reads the presentation service configuration.
func LoadWeb() (*Web, error) {
	_ = godotenv.Load()

	cfg := &Web{}
	flag.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "Server port")
	flag.StringVar(&cfg.Env, "env", getEnv("ENV", "development"), "Environment (development, production)")
	flag.StringVar(&cfg.APIBaseURL, "api-url", getEnv("API_BASE_URL", "http://localhost:8081"), "Data service base URL")
	flag.Parse()

	cfg.TrustSecret = getEnv("TRUST_SECRET", "")
	cfg.SecureCookies = getEnv("SECURE_COOKIES", "false") == "true"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Web) Validate() error {
	if len(c.TrustSecret) < 32 {
		return fmt.Errorf("TRUST_SECRET must be at least 32 characters")
	}
	return nil
}

func (c *Web) IsDevelopment() bool { return c.Env == "development" }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
