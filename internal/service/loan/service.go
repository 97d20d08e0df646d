// Package loan implements loan underwriting and repayment: PENDING requests,
// approval behind the solvency gate, flat-interest amortization with a
// trued-up final installment, and EMI settlement that closes the loan when
// the balance reaches zero.
package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	loanrepo "github.com/spdarshan46/pund-management/internal/adapter/postgres/loan"
	"github.com/spdarshan46/pund-management/internal/domain"
)

// loanRepo defines the loan repository interface needed by the loan service.
type loanRepo interface {
	Create(ctx context.Context, loan domain.Loan) (domain.Loan, error)
	GetByID(ctx context.Context, loanID uuid.UUID) (domain.Loan, error)
	HasActiveLoan(ctx context.Context, groupID, memberID uuid.UUID) (bool, error)
	Approve(ctx context.Context, loan domain.Loan) (domain.Loan, error)
	Reject(ctx context.Context, loanID, rejectedBy uuid.UUID, at time.Time) error
	UpdateRepayment(ctx context.Context, loan domain.Loan) error
	CreateInstallments(ctx context.Context, installments []domain.Installment) error
	GetInstallment(ctx context.Context, installmentID uuid.UUID) (domain.Installment, error)
	ListInstallments(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error)
	MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, paidAt time.Time) error
	StampInstallmentPenalties(ctx context.Context, groupID uuid.UUID, penalty decimal.Decimal, today time.Time) (int64, error)
	List(ctx context.Context, f loanrepo.Filter) ([]domain.Loan, error)
}

// ruleRepo defines the rule version repository interface needed by the loan
// service.
type ruleRepo interface {
	ResolveAt(ctx context.Context, groupID uuid.UUID, asOf time.Time) (domain.RuleVersion, error)
}

// groupRepo defines the group repository interface needed by the loan
// service.
type groupRepo interface {
	GetByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error)
	LockByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error)
	GetMembership(ctx context.Context, groupID, memberID uuid.UUID) (domain.Membership, error)
}

// fundCalculator derives the amount available for lending.
type fundCalculator interface {
	AvailableFund(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
}

// auditRepo defines the audit log repository interface needed by the loan
// service.
type auditRepo interface {
	Log(ctx context.Context, entry domain.AuditLog) error
}

// txManager defines the transaction manager interface needed by the loan
// service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Limits carries the ledger-wide caps from configuration. A zero field
// means no cap.
type Limits struct {
	MaxCycles      int
	MaxMoneyDigits int
}

// PaymentResult is the outcome of one installment settlement.
type PaymentResult struct {
	Installment domain.Installment
	Loan        domain.Loan
	Collected   decimal.Decimal // EMI plus any stamped penalty
	LoanClosed  bool
}

// Service implements loan operations.
type Service struct {
	log    *slog.Logger
	loans  loanRepo
	rules  ruleRepo
	groups groupRepo
	fund   fundCalculator
	audit  auditRepo
	tx     txManager
	limits Limits
}

// NewService creates a new loan service instance.
func NewService(
	logger *slog.Logger,
	loans loanRepo,
	rules ruleRepo,
	groups groupRepo,
	fund fundCalculator,
	audit auditRepo,
	tx txManager,
	limits Limits,
) *Service {
	return &Service{
		log:    logger.With("service", "loan"),
		loans:  loans,
		rules:  rules,
		groups: groups,
		fund:   fund,
		audit:  audit,
		tx:     tx,
		limits: limits,
	}
}

// Request creates a PENDING loan for an active member. Terms stay zeroed
// until approval. A member can hold at most one active loan per group; the
// partial unique index backs the precheck under concurrency.
func (s *Service) Request(ctx context.Context, input RequestInput) (domain.Loan, error) {
	if err := input.Validate(); err != nil {
		return domain.Loan{}, err
	}
	if s.limits.MaxMoneyDigits > 0 {
		limit := decimal.New(1, int32(s.limits.MaxMoneyDigits))
		if input.Principal.GreaterThanOrEqual(limit) {
			return domain.Loan{}, domain.NewValidationError("principal",
				fmt.Sprintf("must have fewer than %d integer digits", s.limits.MaxMoneyDigits))
		}
	}

	group, err := s.groups.GetByID(ctx, input.GroupID)
	if err != nil {
		return domain.Loan{}, err
	}
	if !group.Active {
		return domain.Loan{}, fmt.Errorf("group %s: %w", group.ID, domain.ErrGroupInactive)
	}

	membership, err := s.groups.GetMembership(ctx, input.GroupID, input.MemberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Loan{}, fmt.Errorf("member %s in group %s: %w", input.MemberID, input.GroupID, domain.ErrNotAMember)
		}
		return domain.Loan{}, err
	}
	if !membership.Active {
		return domain.Loan{}, fmt.Errorf("member %s in group %s: %w", input.MemberID, input.GroupID, domain.ErrNotAMember)
	}

	hasActive, err := s.loans.HasActiveLoan(ctx, input.GroupID, input.MemberID)
	if err != nil {
		return domain.Loan{}, err
	}
	if hasActive {
		return domain.Loan{}, fmt.Errorf("member %s: %w", input.MemberID, domain.ErrActiveLoanExists)
	}

	created, err := s.loans.Create(ctx, domain.Loan{
		ID:        uuid.New(),
		GroupID:   input.GroupID,
		MemberID:  input.MemberID,
		Principal: input.Principal,
		Status:    domain.LoanStatusPending,
	})
	if err != nil {
		return domain.Loan{}, err
	}

	s.log.InfoContext(ctx, "loan requested",
		"loan_id", created.ID,
		"group_id", created.GroupID,
		"member_id", created.MemberID,
		"principal", created.Principal,
	)

	return created, nil
}

// Approve moves a PENDING loan to APPROVED. The rule effective today supplies
// the interest rate and the default term; the solvency gate rejects a
// principal strictly greater than the available fund. Loan terms, the
// repayment schedule and the audit entry commit in one transaction. The first
// installment falls one cadence after today.
func (s *Service) Approve(ctx context.Context, input ApproveInput) (domain.Loan, []domain.Installment, error) {
	if err := input.Validate(); err != nil {
		return domain.Loan{}, nil, err
	}
	if s.limits.MaxCycles > 0 && input.Cycles > s.limits.MaxCycles {
		return domain.Loan{}, nil, domain.NewValidationError("cycles",
			fmt.Sprintf("must not exceed %d", s.limits.MaxCycles))
	}

	var (
		approved     domain.Loan
		installments []domain.Installment
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ln, err := s.loans.GetByID(ctx, input.LoanID)
		if err != nil {
			return err
		}

		group, err := s.groups.LockByID(ctx, ln.GroupID)
		if err != nil {
			return err
		}
		if !group.Active {
			return fmt.Errorf("group %s: %w", group.ID, domain.ErrGroupInactive)
		}
		if ln.Status != domain.LoanStatusPending {
			return fmt.Errorf("loan %s is %s: %w", ln.ID, ln.Status, domain.ErrLoanNotPending)
		}

		rule, err := s.rules.ResolveAt(ctx, group.ID, input.Today)
		if err != nil {
			return err
		}

		available, err := s.fund.AvailableFund(ctx, group.ID)
		if err != nil {
			return err
		}
		if ln.Principal.GreaterThan(available) {
			return fmt.Errorf("principal %s exceeds available fund %s: %w",
				ln.Principal, available, domain.ErrInsufficientFund)
		}

		cycles := input.Cycles
		if cycles == 0 {
			cycles = rule.DefaultLoanCycles
		}

		plan, err := domain.PlanAmortization(ln.Principal, rule.LoanInterestRate, cycles)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		ln.InterestRate = plan.InterestRate
		ln.TotalPayable = plan.TotalPayable
		ln.TotalCycles = plan.Cycles
		ln.RemainingAmount = plan.TotalPayable
		ln.Status = domain.LoanStatusApproved
		ln.Active = true
		ln.ApprovedBy = &input.ApproverID
		ln.ApprovedAt = &now

		approved, err = s.loans.Approve(ctx, ln)
		if err != nil {
			return err
		}

		cadenceDays := group.Cadence.Days()
		installments = plan.Installments(ln.ID, domain.AddDays(input.Today, cadenceDays), cadenceDays)
		if err := s.loans.CreateInstallments(ctx, installments); err != nil {
			return err
		}

		return s.audit.Log(ctx, domain.AuditLog{
			ID:      uuid.New(),
			GroupID: group.ID,
			ActorID: input.ApproverID,
			Action:  domain.AuditActionLoanApproved,
			Description: fmt.Sprintf("loan %s approved: principal %s, payable %s over %d cycles",
				ln.ID, ln.Principal, ln.TotalPayable, ln.TotalCycles),
		})
	})
	if err != nil {
		return domain.Loan{}, nil, err
	}

	s.log.InfoContext(ctx, "loan approved",
		"loan_id", approved.ID,
		"group_id", approved.GroupID,
		"total_payable", approved.TotalPayable,
		"cycles", approved.TotalCycles,
	)

	return approved, installments, nil
}

// Reject moves a PENDING loan to REJECTED and records an audit entry in the
// same transaction.
func (s *Service) Reject(ctx context.Context, input RejectInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ln, err := s.loans.GetByID(ctx, input.LoanID)
		if err != nil {
			return err
		}

		if err := s.loans.Reject(ctx, ln.ID, input.RejectedBy, input.Today); err != nil {
			return err
		}

		return s.audit.Log(ctx, domain.AuditLog{
			ID:          uuid.New(),
			GroupID:     ln.GroupID,
			ActorID:     input.RejectedBy,
			Action:      domain.AuditActionLoanRejected,
			Description: fmt.Sprintf("loan %s rejected: principal %s", ln.ID, ln.Principal),
		})
	})
}

// PayInstallment settles one installment. Overdue loan penalties for the
// group are realized first so the amount collected includes any penalty this
// installment just earned. The loan balance drops by the EMI only; when it
// reaches zero the loan closes and frees the member for a new loan in the
// same step.
func (s *Service) PayInstallment(ctx context.Context, input PayInstallmentInput) (PaymentResult, error) {
	if err := input.Validate(); err != nil {
		return PaymentResult{}, err
	}

	var result PaymentResult

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		installment, err := s.loans.GetInstallment(ctx, input.InstallmentID)
		if err != nil {
			return err
		}

		ln, err := s.loans.GetByID(ctx, installment.LoanID)
		if err != nil {
			return err
		}

		group, err := s.groups.LockByID(ctx, ln.GroupID)
		if err != nil {
			return err
		}

		rule, err := s.rules.ResolveAt(ctx, group.ID, input.PaidAt)
		if err != nil {
			return err
		}
		if rule.MissedLoanPenalty.Sign() > 0 {
			if _, err := s.loans.StampInstallmentPenalties(ctx, group.ID, rule.MissedLoanPenalty, input.PaidAt); err != nil {
				return err
			}
			// Re-read: the stamp may have landed on this installment.
			installment, err = s.loans.GetInstallment(ctx, installment.ID)
			if err != nil {
				return err
			}
		}

		if err := s.loans.MarkInstallmentPaid(ctx, installment.ID, input.PaidAt); err != nil {
			return err
		}
		paidAt := domain.Date(input.PaidAt)
		installment.Paid = true
		installment.PaidAt = &paidAt

		closed := ln.ReduceRemaining(installment.EMIAmount)
		if err := s.loans.UpdateRepayment(ctx, ln); err != nil {
			return err
		}

		result = PaymentResult{
			Installment: installment,
			Loan:        ln,
			Collected:   installment.TotalDue(),
			LoanClosed:  closed,
		}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	s.log.InfoContext(ctx, "installment paid",
		"installment_id", result.Installment.ID,
		"loan_id", result.Loan.ID,
		"collected", result.Collected,
		"loan_closed", result.LoanClosed,
	)

	return result, nil
}

// Detail returns a loan together with its repayment schedule as of today.
// Overdue loan penalties for the loan's group are realized first so the
// schedule shows every penalty already earned.
func (s *Service) Detail(ctx context.Context, loanID uuid.UUID, today time.Time) (domain.Loan, []domain.Installment, error) {
	ln, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return domain.Loan{}, nil, err
	}

	// A group without an effective rule version has no penalty schedule yet.
	// The read still succeeds, it just realizes nothing.
	rule, err := s.rules.ResolveAt(ctx, ln.GroupID, today)
	switch {
	case errors.Is(err, domain.ErrRuleNotSet):
		rule = domain.RuleVersion{}
	case err != nil:
		return domain.Loan{}, nil, err
	}
	if rule.MissedLoanPenalty.Sign() > 0 {
		if _, err := s.loans.StampInstallmentPenalties(ctx, ln.GroupID, rule.MissedLoanPenalty, today); err != nil {
			return domain.Loan{}, nil, err
		}
	}

	installments, err := s.loans.ListInstallments(ctx, loanID)
	if err != nil {
		return domain.Loan{}, nil, err
	}

	return ln, installments, nil
}

// List returns loans matching the filter.
func (s *Service) List(ctx context.Context, f loanrepo.Filter) ([]domain.Loan, error) {
	return s.loans.List(ctx, f)
}
