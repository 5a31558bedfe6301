package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/coverledger/internal/store"
)

// Applies any pending schema migrations and exits. The api binary also
// migrates on boot; this exists for running migrations out of band.
func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	pool, err := store.Open(ctx, dbURL)
	if err != nil {
		slog.Error("failed to connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}

	fmt.Println("migrations complete")
}
