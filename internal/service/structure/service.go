// Package structure implements rule version management: effective-dated
// snapshots of a group's contribution and loan terms. Versions are never
// edited in the past; an upsert always lands one cadence ahead of today, so
// obligations already generated keep the terms they were generated under.
package structure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spdarshan46/pund-management/internal/domain"
)

// ruleRepo defines the rule version repository interface needed by the
// structure service.
type ruleRepo interface {
	Upsert(ctx context.Context, rv domain.RuleVersion) (domain.RuleVersion, error)
	ResolveAt(ctx context.Context, groupID uuid.UUID, asOf time.Time) (domain.RuleVersion, error)
	History(ctx context.Context, groupID uuid.UUID) ([]domain.RuleVersion, error)
}

// groupRepo defines the group repository interface needed by the structure
// service.
type groupRepo interface {
	GetByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error)
	LockByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error)
}

// txManager defines the transaction manager interface needed by the
// structure service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements rule version operations.
type Service struct {
	log    *slog.Logger
	rules  ruleRepo
	groups groupRepo
	tx     txManager
}

// NewService creates a new structure service instance.
func NewService(logger *slog.Logger, rules ruleRepo, groups groupRepo, tx txManager) *Service {
	return &Service{
		log:    logger.With("service", "structure"),
		rules:  rules,
		groups: groups,
		tx:     tx,
	}
}

// UpsertFutureRule creates or updates the rule version effective one cadence
// after today. If a version already exists at that exact date its terms are
// replaced in place; otherwise a new version is inserted. Versions effective
// on or before today are never touched. Reports whether a new version was
// created (false means an existing one was updated).
func (s *Service) UpsertFutureRule(ctx context.Context, input UpsertRuleInput) (domain.RuleVersion, bool, error) {
	if err := input.Validate(); err != nil {
		return domain.RuleVersion{}, false, err
	}

	newID := uuid.New()
	var persisted domain.RuleVersion

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		group, err := s.groups.LockByID(ctx, input.GroupID)
		if err != nil {
			return err
		}
		if !group.Active {
			return fmt.Errorf("group %s: %w", group.ID, domain.ErrGroupInactive)
		}

		rv := domain.RuleVersion{
			ID:                  newID,
			GroupID:             input.GroupID,
			ContributionAmount:  input.ContributionAmount,
			LoanInterestRate:    input.LoanInterestRate,
			MissedSavingPenalty: input.MissedSavingPenalty,
			MissedLoanPenalty:   input.MissedLoanPenalty,
			DefaultLoanCycles:   input.DefaultLoanCycles,
			EffectiveFrom:       domain.AddDays(input.Today, group.Cadence.Days()),
		}

		persisted, err = s.rules.Upsert(ctx, rv)
		return err
	})
	if err != nil {
		return domain.RuleVersion{}, false, err
	}

	created := persisted.ID == newID

	s.log.Info("rule version upserted",
		"group_id", input.GroupID,
		"effective_from", persisted.EffectiveFrom.Format("2006-01-02"),
		"created", created,
	)

	return persisted, created, nil
}

// ResolveRule returns the rule version governing the given date, or
// domain.ErrRuleNotSet when none is effective yet.
func (s *Service) ResolveRule(ctx context.Context, groupID uuid.UUID, asOf time.Time) (domain.RuleVersion, error) {
	return s.rules.ResolveAt(ctx, groupID, asOf)
}

// History returns all rule versions of a group, newest effective date first.
func (s *Service) History(ctx context.Context, groupID uuid.UUID) ([]domain.RuleVersion, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.rules.History(ctx, groupID)
}
