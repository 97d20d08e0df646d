// Command penalty-sweep realizes overdue penalties across all active
// groups: missed-saving penalties on unpaid obligations and missed-loan
// penalties on unpaid installments of active loans. Stamping is idempotent,
// so the sweep is safe to run daily from an external cron job.
//
// Exit codes: 0 = success, 1 = error (including partial failure).
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/spdarshan46/pund-management/internal/adapter/postgres"
	groupadapter "github.com/spdarshan46/pund-management/internal/adapter/postgres/group"
	loanadapter "github.com/spdarshan46/pund-management/internal/adapter/postgres/loan"
	obligationadapter "github.com/spdarshan46/pund-management/internal/adapter/postgres/obligation"
	ruleadapter "github.com/spdarshan46/pund-management/internal/adapter/postgres/rule"
	"github.com/spdarshan46/pund-management/internal/app"
	"github.com/spdarshan46/pund-management/internal/config"
	"github.com/spdarshan46/pund-management/internal/domain"
	"github.com/spdarshan46/pund-management/internal/service/penalty"
	"github.com/spdarshan46/pund-management/pkg/ctxutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("starting", slog.String("version", app.BuildVersion()))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Job.Timeout)
	defer cancel()
	ctx = ctxutil.WithRequestID(ctx, uuid.NewString())

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	groupRepo := groupadapter.New(pool)
	svc := penalty.NewService(
		logger,
		obligationadapter.New(pool),
		loanadapter.New(pool),
		ruleadapter.New(pool),
		groupRepo,
	)

	active := true
	groups, err := groupRepo.ListGroups(ctx, groupadapter.Filter{Active: &active})
	if err != nil {
		logger.Error("list active groups", slog.String("error", err.Error()))
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Ledger.DefaultTimezone)
	if err != nil {
		logger.Error("load timezone", slog.String("error", err.Error()))
		os.Exit(1)
	}
	today := time.Now().In(loc)
	var obligationsStamped, installmentsStamped int64
	var failed int

	for _, g := range groups {
		if cfg.Job.DryRun {
			logger.Info("dry run: would sweep group", slog.String("group_id", g.ID.String()))
			continue
		}

		result, err := svc.Apply(ctx, g.ID, today)
		switch {
		case errors.Is(err, domain.ErrRuleNotSet):
			logger.Warn("skipping group without a rule", slog.String("group_id", g.ID.String()))
		case err != nil:
			logger.Error("apply penalties",
				slog.String("group_id", g.ID.String()),
				slog.String("error", err.Error()),
			)
			failed++
		default:
			obligationsStamped += result.ObligationsStamped
			installmentsStamped += result.InstallmentsStamped
		}
	}

	logger.Info("penalty sweep completed",
		slog.Int("groups", len(groups)),
		slog.Int64("obligations_stamped", obligationsStamped),
		slog.Int64("installments_stamped", installmentsStamped),
		slog.Int("failed", failed),
	)

	if failed > 0 {
		os.Exit(1)
	}
}
