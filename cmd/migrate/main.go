// Command migrate applies pending database migrations.
//
// Usage:
//
//	migrate [migrations-dir]
//
// The directory defaults to ./migrations. Requires DATABASE_DSN (directly or
// via config.yaml).
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/spdarshan46/pund-management/internal/app"
	"github.com/spdarshan46/pund-management/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("starting", slog.String("version", app.BuildVersion()))

	dir := "./migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Job.Timeout)
	defer cancel()

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		logger.Error("create migration provider", slog.String("error", err.Error()))
		os.Exit(1)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		logger.Error("apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, r := range results {
		logger.Info("migration applied",
			slog.String("source", r.Source.Path),
			slog.Duration("took", r.Duration),
		)
	}

	logger.Info("migrations up to date", slog.Int("applied", len(results)))
}
