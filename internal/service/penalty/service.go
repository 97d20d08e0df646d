// Package penalty implements lazy penalty realization. Overdue unpaid
// obligations and loan installments get their rule-resolved penalty stamped
// exactly once; re-running is a no-op. Balance-sensitive reads call Apply
// first so derived totals include every earned penalty.
package penalty

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spdarshan46/pund-management/internal/domain"
)

// obligationRepo defines the obligation repository interface needed by the
// penalty service.
type obligationRepo interface {
	StampOverduePenalties(ctx context.Context, groupID uuid.UUID, penalty decimal.Decimal, today time.Time) (int64, error)
}

// loanRepo defines the loan repository interface needed by the penalty
// service.
type loanRepo interface {
	StampInstallmentPenalties(ctx context.Context, groupID uuid.UUID, penalty decimal.Decimal, today time.Time) (int64, error)
}

// ruleRepo defines the rule version repository interface needed by the
// penalty service.
type ruleRepo interface {
	ResolveAt(ctx context.Context, groupID uuid.UUID, asOf time.Time) (domain.RuleVersion, error)
}

// groupRepo defines the group repository interface needed by the penalty
// service.
type groupRepo interface {
	GetByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error)
}

// Result reports how many rows one penalty application stamped.
type Result struct {
	ObligationsStamped  int64
	InstallmentsStamped int64
}

// Service implements penalty application.
type Service struct {
	log         *slog.Logger
	obligations obligationRepo
	loans       loanRepo
	rules       ruleRepo
	groups      groupRepo
}

// NewService creates a new penalty service instance.
func NewService(
	logger *slog.Logger,
	obligations obligationRepo,
	loans loanRepo,
	rules ruleRepo,
	groups groupRepo,
) *Service {
	return &Service{
		log:         logger.With("service", "penalty"),
		obligations: obligations,
		loans:       loans,
		rules:       rules,
		groups:      groups,
	}
}

// Apply stamps penalties on everything overdue in a group as of today:
// missed-saving penalties on unpaid obligations, missed-loan penalties on
// unpaid installments of active loans. The penalty = 0 guard in the storage
// layer makes Apply idempotent, so it needs no group lock and is safe to
// call before any read.
func (s *Service) Apply(ctx context.Context, groupID uuid.UUID, today time.Time) (Result, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return Result{}, err
	}

	rule, err := s.rules.ResolveAt(ctx, groupID, today)
	if err != nil {
		return Result{}, err
	}

	var result Result

	if rule.MissedSavingPenalty.Sign() > 0 {
		result.ObligationsStamped, err = s.obligations.StampOverduePenalties(ctx, groupID, rule.MissedSavingPenalty, today)
		if err != nil {
			return Result{}, err
		}
	}

	if rule.MissedLoanPenalty.Sign() > 0 {
		result.InstallmentsStamped, err = s.loans.StampInstallmentPenalties(ctx, groupID, rule.MissedLoanPenalty, today)
		if err != nil {
			return Result{}, err
		}
	}

	if result.ObligationsStamped > 0 || result.InstallmentsStamped > 0 {
		s.log.Info("penalties applied",
			"group_id", groupID,
			"obligations", result.ObligationsStamped,
			"installments", result.InstallmentsStamped,
		)
	}

	return result, nil
}
