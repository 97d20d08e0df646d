// Command cycle-runner generates the next contribution cycle for every
// active group on a given cadence. It is intended to be invoked by an
// external cron job scheduled at the cadence rhythm (daily, weekly or
// monthly), not as an in-process goroutine.
//
// Usage:
//
//	cycle-runner <DAILY|WEEKLY|MONTHLY>
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
	obligationadapter "github.com/spdarshan46/pund-management/internal/adapter/postgres/obligation"
	ruleadapter "github.com/spdarshan46/pund-management/internal/adapter/postgres/rule"
	"github.com/spdarshan46/pund-management/internal/app"
	"github.com/spdarshan46/pund-management/internal/config"
	"github.com/spdarshan46/pund-management/internal/domain"
	"github.com/spdarshan46/pund-management/internal/service/cycle"
	"github.com/spdarshan46/pund-management/pkg/ctxutil"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("starting", slog.String("version", app.BuildVersion()))

	if len(os.Args) < 2 {
		logger.Error("usage: cycle-runner <DAILY|WEEKLY|MONTHLY>")
		os.Exit(1)
	}
	cadence := domain.Cadence(os.Args[1])
	if !cadence.IsValid() {
		logger.Error("unknown cadence", slog.String("cadence", os.Args[1]))
		os.Exit(1)
	}

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
	svc := cycle.NewService(
		logger,
		obligationadapter.New(pool),
		ruleadapter.New(pool),
		groupRepo,
		postgres.NewTxManager(pool),
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
	var generated, skipped, failed int

	for _, g := range groups {
		if g.Cadence != cadence {
			continue
		}

		if cfg.Job.DryRun {
			logger.Info("dry run: would generate cycle", slog.String("group_id", g.ID.String()))
			skipped++
			continue
		}

		result, err := svc.Generate(ctx, cycle.GenerateInput{GroupID: g.ID, Today: today})
		switch {
		case errors.Is(err, domain.ErrRuleNotSet):
			logger.Warn("skipping group without a rule", slog.String("group_id", g.ID.String()))
			skipped++
		case err != nil:
			logger.Error("generate cycle",
				slog.String("group_id", g.ID.String()),
				slog.String("error", err.Error()),
			)
			failed++
		default:
			logger.Info("cycle generated",
				slog.String("group_id", g.ID.String()),
				slog.Int("cycle", result.CycleNumber),
				slog.Int("obligations", len(result.Obligations)),
				slog.Int64("penalties_stamped", result.PenaltiesStamped),
			)
			generated++
		}
	}

	logger.Info("cycle run completed",
		slog.String("cadence", cadence.String()),
		slog.Int("generated", generated),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)

	if failed > 0 {
		os.Exit(1)
	}
}
