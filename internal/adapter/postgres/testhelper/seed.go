package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spdarshan46/pund-management/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedGroup creates an active weekly group started 30 days ago, with its
// creator as an OWNER member. Returns a filled domain.Group.
func SeedGroup(t *testing.T, pool *pgxpool.Pool) domain.Group {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	group := domain.Group{
		ID:        uuid.New(),
		Name:      "Test Pund " + suffix,
		Cadence:   domain.CadenceWeekly,
		StartDate: domain.AddDays(now, -30),
		Active:    true,
		CreatedBy: uuid.New(),
		CreatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO groups (id, name, cadence, start_date, active, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		group.ID, group.Name, string(group.Cadence), group.StartDate, group.Active, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedGroup insert group: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO memberships (id, group_id, member_id, role, active, joined_at)
		 VALUES ($1, $2, $3, $4, TRUE, $5)`,
		uuid.New(), group.ID, group.CreatedBy, string(domain.MemberRoleOwner), now,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedGroup insert owner membership: %v", err)
	}

	return group
}

// SeedMember adds an active MEMBER-role membership to a group and returns it.
func SeedMember(t *testing.T, pool *pgxpool.Pool, groupID uuid.UUID) domain.Membership {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	membership := domain.Membership{
		ID:       uuid.New(),
		GroupID:  groupID,
		MemberID: uuid.New(),
		Role:     domain.MemberRoleMember,
		Active:   true,
		JoinedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO memberships (id, group_id, member_id, role, active, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		membership.ID, membership.GroupID, membership.MemberID, string(membership.Role), membership.Active, membership.JoinedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedMember insert membership: %v", err)
	}

	return membership
}

// SeedInactiveMember adds an inactive membership to a group and returns it.
func SeedInactiveMember(t *testing.T, pool *pgxpool.Pool, groupID uuid.UUID) domain.Membership {
	t.Helper()
	ctx := context.Background()

	membership := SeedMember(t, pool, groupID)
	_, err := pool.Exec(ctx, `UPDATE memberships SET active = FALSE WHERE id = $1`, membership.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedInactiveMember deactivate: %v", err)
	}
	membership.Active = false

	return membership
}

// SeedRule creates a rule version for a group effective from the given date.
// Contribution 100, interest 10%, saving penalty 5, loan penalty 7, 5 cycles.
func SeedRule(t *testing.T, pool *pgxpool.Pool, groupID uuid.UUID, effectiveFrom time.Time) domain.RuleVersion {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	rv := domain.RuleVersion{
		ID:                  uuid.New(),
		GroupID:             groupID,
		ContributionAmount:  decimal.NewFromInt(100),
		LoanInterestRate:    decimal.NewFromInt(10),
		MissedSavingPenalty: decimal.NewFromInt(5),
		MissedLoanPenalty:   decimal.NewFromInt(7),
		DefaultLoanCycles:   5,
		EffectiveFrom:       domain.Date(effectiveFrom),
		CreatedAt:           now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO rule_versions (id, group_id, contribution_amount, loan_interest_rate,
		                            missed_saving_penalty, missed_loan_penalty,
		                            default_loan_cycles, effective_from, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rv.ID, rv.GroupID, rv.ContributionAmount, rv.LoanInterestRate,
		rv.MissedSavingPenalty, rv.MissedLoanPenalty,
		rv.DefaultLoanCycles, rv.EffectiveFrom, rv.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedRule insert rule_version: %v", err)
	}

	return rv
}

// SeedObligation creates an unpaid obligation for a member and cycle with
// the given due date. Amount 100, no penalty.
func SeedObligation(t *testing.T, pool *pgxpool.Pool, groupID, memberID uuid.UUID, cycle int, dueDate time.Time) domain.Obligation {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	o := domain.Obligation{
		ID:            uuid.New(),
		GroupID:       groupID,
		MemberID:      memberID,
		CycleNumber:   cycle,
		Amount:        decimal.NewFromInt(100),
		PenaltyAmount: decimal.Zero,
		Paid:          false,
		DueDate:       domain.Date(dueDate),
		CreatedAt:     now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO obligations (id, group_id, member_id, cycle_number, amount,
		                          penalty_amount, paid, due_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.GroupID, o.MemberID, o.CycleNumber, o.Amount,
		o.PenaltyAmount, o.Paid, o.DueDate, o.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedObligation insert obligation: %v", err)
	}

	return o
}

// SeedPaidObligation creates a paid obligation for a member and cycle.
func SeedPaidObligation(t *testing.T, pool *pgxpool.Pool, groupID, memberID uuid.UUID, cycle int, dueDate time.Time) domain.Obligation {
	t.Helper()
	ctx := context.Background()

	o := SeedObligation(t, pool, groupID, memberID, cycle, dueDate)
	paidAt := time.Now().UTC().Truncate(time.Microsecond)
	_, err := pool.Exec(ctx,
		`UPDATE obligations SET paid = TRUE, paid_at = $2 WHERE id = $1`, o.ID, paidAt)
	if err != nil {
		t.Fatalf("testhelper: SeedPaidObligation mark paid: %v", err)
	}
	o.Paid = true
	o.PaidAt = &paidAt

	return o
}

// SeedApprovedLoan creates an APPROVED active loan with its terms already
// computed: principal 500 at 10% over 5 cycles, EMI 110.
func SeedApprovedLoan(t *testing.T, pool *pgxpool.Pool, groupID, memberID uuid.UUID) domain.Loan {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	approvedBy := uuid.New()
	loan := domain.Loan{
		ID:              uuid.New(),
		GroupID:         groupID,
		MemberID:        memberID,
		Principal:       decimal.NewFromInt(500),
		InterestRate:    decimal.NewFromInt(10),
		TotalPayable:    decimal.NewFromInt(550),
		TotalCycles:     5,
		RemainingAmount: decimal.NewFromInt(550),
		Status:          domain.LoanStatusApproved,
		Active:          true,
		ApprovedBy:      &approvedBy,
		ApprovedAt:      &now,
		CreatedAt:       now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO loans (id, group_id, member_id, principal, interest_rate,
		                    total_payable, total_cycles, remaining_amount, status,
		                    active, approved_by, approved_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		loan.ID, loan.GroupID, loan.MemberID, loan.Principal, loan.InterestRate,
		loan.TotalPayable, loan.TotalCycles, loan.RemainingAmount, string(loan.Status),
		loan.Active, loan.ApprovedBy, loan.ApprovedAt, loan.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedApprovedLoan insert loan: %v", err)
	}

	return loan
}

// SeedInstallment creates an unpaid installment for a loan. EMI 110, no penalty.
func SeedInstallment(t *testing.T, pool *pgxpool.Pool, loanID uuid.UUID, cycle int, dueDate time.Time) domain.Installment {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	inst := domain.Installment{
		ID:            uuid.New(),
		LoanID:        loanID,
		CycleNumber:   cycle,
		EMIAmount:     decimal.NewFromInt(110),
		PenaltyAmount: decimal.Zero,
		DueDate:       domain.Date(dueDate),
		Paid:          false,
		CreatedAt:     now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO loan_installments (id, loan_id, cycle_number, emi_amount,
		                                penalty_amount, due_date, paid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inst.ID, inst.LoanID, inst.CycleNumber, inst.EMIAmount,
		inst.PenaltyAmount, inst.DueDate, inst.Paid, inst.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedInstallment insert installment: %v", err)
	}

	return inst
}
