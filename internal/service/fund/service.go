// Package fund implements the derived fund ledger. The available fund is
// never persisted: it is recomputed from paid obligations and active loan
// balances on every read. Summaries realize overdue penalties first so the
// reported totals include everything already earned.
package fund

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spdarshan46/pund-management/internal/adapter/postgres/loan"
	"github.com/spdarshan46/pund-management/internal/adapter/postgres/obligation"
	"github.com/spdarshan46/pund-management/internal/domain"
	"github.com/spdarshan46/pund-management/internal/service/penalty"
)

// obligationRepo defines the obligation repository interface needed by the
// fund service.
type obligationRepo interface {
	SumCollected(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, f obligation.Filter) ([]domain.Obligation, error)
}

// loanRepo defines the loan repository interface needed by the fund service.
type loanRepo interface {
	SumOutstanding(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
	SumPrincipalDisbursed(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
	SumRepaid(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
	SumRepaidByMember(ctx context.Context, groupID, memberID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, f loan.Filter) ([]domain.Loan, error)
}

// groupRepo defines the group repository interface needed by the fund
// service.
type groupRepo interface {
	ListActiveMemberships(ctx context.Context, groupID uuid.UUID) ([]domain.Membership, error)
}

// penaltyApplier realizes overdue penalties before balance-sensitive reads.
type penaltyApplier interface {
	Apply(ctx context.Context, groupID uuid.UUID, today time.Time) (penalty.Result, error)
}

// Summary is the owner-facing fund position of a group.
type Summary struct {
	GroupID          uuid.UUID
	Collected        decimal.Decimal // paid obligation base amounts, penalties excluded
	Disbursed        decimal.Decimal // principal handed out (approved + closed)
	Repaid           decimal.Decimal // paid installments: EMIs + penalties
	OutstandingLoans decimal.Decimal // remaining balance of active loans
	Available        decimal.Decimal // Collected - OutstandingLoans
}

// SavingSummary aggregates a group's contribution ledger.
type SavingSummary struct {
	GroupID            uuid.UUID
	Cycles             int
	ActiveMembers      int
	ExpectedTotal      decimal.Decimal
	PaidTotal          decimal.Decimal
	UnpaidTotal        decimal.Decimal
	PenaltiesAssessed  decimal.Decimal
	PenaltiesCollected decimal.Decimal
}

// MemberSummary is one member's financial position inside a group.
type MemberSummary struct {
	GroupID       uuid.UUID
	MemberID      uuid.UUID
	SavingsPaid   decimal.Decimal
	SavingsUnpaid decimal.Decimal
	PenaltiesDue  decimal.Decimal
	LoanRepaid    decimal.Decimal
	ActiveLoan    *domain.Loan
}

// Service implements fund ledger reads.
type Service struct {
	log         *slog.Logger
	obligations obligationRepo
	loans       loanRepo
	groups      groupRepo
	penalties   penaltyApplier
}

// NewService creates a new fund service instance.
func NewService(
	logger *slog.Logger,
	obligations obligationRepo,
	loans loanRepo,
	groups groupRepo,
	penalties penaltyApplier,
) *Service {
	return &Service{
		log:         logger.With("service", "fund"),
		obligations: obligations,
		loans:       loans,
		groups:      groups,
		penalties:   penalties,
	}
}

// AvailableFund derives the amount currently available for lending:
// everything collected via paid obligations minus the remaining balance of
// active loans.
func (s *Service) AvailableFund(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	collected, err := s.obligations.SumCollected(ctx, groupID)
	if err != nil {
		return decimal.Zero, err
	}

	outstanding, err := s.loans.SumOutstanding(ctx, groupID)
	if err != nil {
		return decimal.Zero, err
	}

	return collected.Sub(outstanding), nil
}

// FundSummary returns the group's full fund position as of today. Overdue
// penalties are realized first.
func (s *Service) FundSummary(ctx context.Context, groupID uuid.UUID, today time.Time) (Summary, error) {
	if _, err := s.penalties.Apply(ctx, groupID, today); err != nil {
		return Summary{}, err
	}

	collected, err := s.obligations.SumCollected(ctx, groupID)
	if err != nil {
		return Summary{}, err
	}
	disbursed, err := s.loans.SumPrincipalDisbursed(ctx, groupID)
	if err != nil {
		return Summary{}, err
	}
	repaid, err := s.loans.SumRepaid(ctx, groupID)
	if err != nil {
		return Summary{}, err
	}
	outstanding, err := s.loans.SumOutstanding(ctx, groupID)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		GroupID:          groupID,
		Collected:        collected,
		Disbursed:        disbursed,
		Repaid:           repaid,
		OutstandingLoans: outstanding,
		Available:        collected.Sub(outstanding),
	}, nil
}

// SavingSummary aggregates the group's contribution ledger as of today.
// Overdue penalties are realized first.
func (s *Service) SavingSummary(ctx context.Context, groupID uuid.UUID, today time.Time) (SavingSummary, error) {
	if _, err := s.penalties.Apply(ctx, groupID, today); err != nil {
		return SavingSummary{}, err
	}

	memberships, err := s.groups.ListActiveMemberships(ctx, groupID)
	if err != nil {
		return SavingSummary{}, err
	}

	obligations, err := s.obligations.List(ctx, obligation.Filter{GroupID: &groupID})
	if err != nil {
		return SavingSummary{}, err
	}

	summary := SavingSummary{GroupID: groupID, ActiveMembers: len(memberships)}
	seenCycles := map[int]struct{}{}
	for _, o := range obligations {
		seenCycles[o.CycleNumber] = struct{}{}
		summary.ExpectedTotal = summary.ExpectedTotal.Add(o.Amount)
		summary.PenaltiesAssessed = summary.PenaltiesAssessed.Add(o.PenaltyAmount)
		if o.Paid {
			summary.PaidTotal = summary.PaidTotal.Add(o.Amount)
			summary.PenaltiesCollected = summary.PenaltiesCollected.Add(o.PenaltyAmount)
		} else {
			summary.UnpaidTotal = summary.UnpaidTotal.Add(o.Amount)
		}
	}
	summary.Cycles = len(seenCycles)

	return summary, nil
}

// MemberSummary returns one member's savings and loan position as of today.
// Overdue penalties are realized first.
func (s *Service) MemberSummary(ctx context.Context, groupID, memberID uuid.UUID, today time.Time) (MemberSummary, error) {
	if _, err := s.penalties.Apply(ctx, groupID, today); err != nil {
		return MemberSummary{}, err
	}

	obligations, err := s.obligations.List(ctx, obligation.Filter{GroupID: &groupID, MemberID: &memberID})
	if err != nil {
		return MemberSummary{}, err
	}

	summary := MemberSummary{GroupID: groupID, MemberID: memberID}
	for _, o := range obligations {
		if o.Paid {
			summary.SavingsPaid = summary.SavingsPaid.Add(o.TotalDue())
		} else {
			summary.SavingsUnpaid = summary.SavingsUnpaid.Add(o.Amount)
			summary.PenaltiesDue = summary.PenaltiesDue.Add(o.PenaltyAmount)
		}
	}

	summary.LoanRepaid, err = s.loans.SumRepaidByMember(ctx, groupID, memberID)
	if err != nil {
		return MemberSummary{}, err
	}

	active := true
	activeLoans, err := s.loans.List(ctx, loan.Filter{GroupID: &groupID, MemberID: &memberID, Active: &active})
	if err != nil {
		return MemberSummary{}, err
	}
	if len(activeLoans) > 0 {
		summary.ActiveLoan = &activeLoans[0]
	}

	return summary, nil
}
