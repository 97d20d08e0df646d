// Package cycle implements obligation generation and settlement. A cycle is
// one contribution round: generating it creates one obligation per active
// member under the governing rule, and stamps missed-saving penalties on the
// previous cycle's stragglers.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spdarshan46/pund-management/internal/adapter/postgres/obligation"
	"github.com/spdarshan46/pund-management/internal/domain"
)

// obligationRepo defines the obligation repository interface needed by the
// cycle service.
type obligationRepo interface {
	CreateBatch(ctx context.Context, obligations []domain.Obligation) error
	GetByID(ctx context.Context, obligationID uuid.UUID) (domain.Obligation, error)
	MaxCycle(ctx context.Context, groupID uuid.UUID) (int, error)
	CycleExists(ctx context.Context, groupID uuid.UUID, cycle int) (bool, error)
	StampPenalties(ctx context.Context, groupID uuid.UUID, cycle int, penalty decimal.Decimal) (int64, error)
	MarkPaid(ctx context.Context, obligationID uuid.UUID, paidAt time.Time) error
	List(ctx context.Context, f obligation.Filter) ([]domain.Obligation, error)
}

// ruleRepo defines the rule version repository interface needed by the
// cycle service.
type ruleRepo interface {
	ResolveAt(ctx context.Context, groupID uuid.UUID, asOf time.Time) (domain.RuleVersion, error)
}

// groupRepo defines the group repository interface needed by the cycle
// service.
type groupRepo interface {
	LockByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error)
	ListActiveMemberships(ctx context.Context, groupID uuid.UUID) ([]domain.Membership, error)
}

// txManager defines the transaction manager interface needed by the cycle
// service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// GenerateResult reports what one cycle generation produced.
type GenerateResult struct {
	CycleNumber      int
	Obligations      []domain.Obligation
	PenaltiesStamped int64
}

// Service implements cycle generation and obligation settlement.
type Service struct {
	log         *slog.Logger
	obligations obligationRepo
	rules       ruleRepo
	groups      groupRepo
	tx          txManager
}

// NewService creates a new cycle service instance.
func NewService(
	logger *slog.Logger,
	obligations obligationRepo,
	rules ruleRepo,
	groups groupRepo,
	tx txManager,
) *Service {
	return &Service{
		log:         logger.With("service", "cycle"),
		obligations: obligations,
		rules:       rules,
		groups:      groups,
		tx:          tx,
	}
}

// Generate creates the next contribution cycle for a group. In one
// transaction it locks the group row, stamps missed-saving penalties on the
// previous cycle's unpaid obligations, and creates one obligation per
// active MEMBER-role membership with the governing rule's contribution
// amount, due one cadence after today. All or nothing.
func (s *Service) Generate(ctx context.Context, input GenerateInput) (GenerateResult, error) {
	if err := input.Validate(); err != nil {
		return GenerateResult{}, err
	}

	var result GenerateResult

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		group, err := s.groups.LockByID(ctx, input.GroupID)
		if err != nil {
			return err
		}
		if !group.Active {
			return fmt.Errorf("group %s: %w", group.ID, domain.ErrGroupInactive)
		}

		rule, err := s.rules.ResolveAt(ctx, group.ID, input.Today)
		if err != nil {
			return err
		}

		maxCycle, err := s.obligations.MaxCycle(ctx, group.ID)
		if err != nil {
			return err
		}
		next := maxCycle + 1

		exists, err := s.obligations.CycleExists(ctx, group.ID, next)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("group %s cycle %d: %w", group.ID, next, domain.ErrCycleExists)
		}

		if maxCycle > 0 && rule.MissedSavingPenalty.Sign() > 0 {
			stamped, err := s.obligations.StampPenalties(ctx, group.ID, maxCycle, rule.MissedSavingPenalty)
			if err != nil {
				return err
			}
			result.PenaltiesStamped = stamped
		}

		memberships, err := s.groups.ListActiveMemberships(ctx, group.ID)
		if err != nil {
			return err
		}

		dueDate := domain.AddDays(input.Today, group.Cadence.Days())
		var obligations []domain.Obligation
		for _, m := range memberships {
			if m.Role != domain.MemberRoleMember {
				continue
			}
			obligations = append(obligations, domain.Obligation{
				ID:          uuid.New(),
				GroupID:     group.ID,
				MemberID:    m.MemberID,
				CycleNumber: next,
				Amount:      rule.ContributionAmount,
				DueDate:     dueDate,
			})
		}

		if err := s.obligations.CreateBatch(ctx, obligations); err != nil {
			return err
		}

		result.CycleNumber = next
		result.Obligations = obligations
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	s.log.Info("cycle generated",
		"group_id", input.GroupID,
		"cycle", result.CycleNumber,
		"obligations", len(result.Obligations),
		"penalties_stamped", result.PenaltiesStamped,
	)

	return result, nil
}

// PayObligation settles one obligation: flips the paid flag exactly once and
// returns the obligation with the collected total (amount plus any stamped
// penalty). A second settlement attempt fails with domain.ErrAlreadyPaid.
func (s *Service) PayObligation(ctx context.Context, input PayObligationInput) (domain.Obligation, error) {
	if err := input.Validate(); err != nil {
		return domain.Obligation{}, err
	}

	var paid domain.Obligation

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.obligations.MarkPaid(ctx, input.ObligationID, input.PaidAt); err != nil {
			return err
		}

		var err error
		paid, err = s.obligations.GetByID(ctx, input.ObligationID)
		return err
	})
	if err != nil {
		return domain.Obligation{}, err
	}

	s.log.Info("obligation paid",
		"obligation_id", paid.ID,
		"group_id", paid.GroupID,
		"cycle", paid.CycleNumber,
		"collected", paid.TotalDue(),
	)

	return paid, nil
}

// ListObligations returns obligations matching the filter.
func (s *Service) ListObligations(ctx context.Context, f obligation.Filter) ([]domain.Obligation, error) {
	return s.obligations.List(ctx, f)
}
