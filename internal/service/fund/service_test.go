package fund

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spdarshan46/pund-management/internal/adapter/postgres/loan"
	"github.com/spdarshan46/pund-management/internal/adapter/postgres/obligation"
	"github.com/spdarshan46/pund-management/internal/domain"
	"github.com/spdarshan46/pund-management/internal/service/penalty"
)

type mockObligationRepo struct {
	SumCollectedFunc func(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
	ListFunc         func(ctx context.Context, f obligation.Filter) ([]domain.Obligation, error)
}

func (m *mockObligationRepo) SumCollected(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	return m.SumCollectedFunc(ctx, groupID)
}

func (m *mockObligationRepo) List(ctx context.Context, f obligation.Filter) ([]domain.Obligation, error) {
	return m.ListFunc(ctx, f)
}

type mockLoanRepo struct {
	SumOutstandingFunc        func(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
	SumPrincipalDisbursedFunc func(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
	SumRepaidFunc             func(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error)
	SumRepaidByMemberFunc     func(ctx context.Context, groupID, memberID uuid.UUID) (decimal.Decimal, error)
	ListFunc                  func(ctx context.Context, f loan.Filter) ([]domain.Loan, error)
}

func (m *mockLoanRepo) SumOutstanding(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	return m.SumOutstandingFunc(ctx, groupID)
}

func (m *mockLoanRepo) SumPrincipalDisbursed(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	return m.SumPrincipalDisbursedFunc(ctx, groupID)
}

func (m *mockLoanRepo) SumRepaid(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	return m.SumRepaidFunc(ctx, groupID)
}

func (m *mockLoanRepo) SumRepaidByMember(ctx context.Context, groupID, memberID uuid.UUID) (decimal.Decimal, error) {
	return m.SumRepaidByMemberFunc(ctx, groupID, memberID)
}

func (m *mockLoanRepo) List(ctx context.Context, f loan.Filter) ([]domain.Loan, error) {
	return m.ListFunc(ctx, f)
}

type mockGroupRepo struct {
	ListActiveMembershipsFunc func(ctx context.Context, groupID uuid.UUID) ([]domain.Membership, error)
}

func (m *mockGroupRepo) ListActiveMemberships(ctx context.Context, groupID uuid.UUID) ([]domain.Membership, error) {
	return m.ListActiveMembershipsFunc(ctx, groupID)
}

type mockPenaltyApplier struct {
	ApplyFunc func(ctx context.Context, groupID uuid.UUID, today time.Time) (penalty.Result, error)
	applied   int
}

func (m *mockPenaltyApplier) Apply(ctx context.Context, groupID uuid.UUID, today time.Time) (penalty.Result, error) {
	m.applied++
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, groupID, today)
	}
	return penalty.Result{}, nil
}

func newTestService(
	obligations *mockObligationRepo,
	loans *mockLoanRepo,
	groups *mockGroupRepo,
	penalties *mockPenaltyApplier,
) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, obligations, loans, groups, penalties)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestService_AvailableFund(t *testing.T) {
	t.Parallel()

	groupID := uuid.New()

	obligations := &mockObligationRepo{
		SumCollectedFunc: func(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
			assert.Equal(t, groupID, id)
			return dec("1050.00"), nil
		},
	}
	loans := &mockLoanRepo{
		SumOutstandingFunc: func(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
			return dec("330.00"), nil
		},
	}

	svc := newTestService(obligations, loans, &mockGroupRepo{}, &mockPenaltyApplier{})

	available, err := svc.AvailableFund(context.Background(), groupID)
	require.NoError(t, err)
	assert.True(t, available.Equal(dec("720.00")), "got %s", available)
}

func TestService_AvailableFund_CanGoNegative(t *testing.T) {
	t.Parallel()

	obligations := &mockObligationRepo{
		SumCollectedFunc: func(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
			return dec("100.00"), nil
		},
	}
	loans := &mockLoanRepo{
		SumOutstandingFunc: func(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
			return dec("550.00"), nil
		},
	}

	svc := newTestService(obligations, loans, &mockGroupRepo{}, &mockPenaltyApplier{})

	available, err := svc.AvailableFund(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, available.Equal(dec("-450.00")), "got %s", available)
}

func TestService_FundSummary(t *testing.T) {
	t.Parallel()

	groupID := uuid.New()
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	obligations := &mockObligationRepo{
		SumCollectedFunc: func(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
			return dec("2000.00"), nil
		},
	}
	loans := &mockLoanRepo{
		SumPrincipalDisbursedFunc: func(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
			return dec("500.00"), nil
		},
		SumRepaidFunc: func(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
			return dec("220.00"), nil
		},
		SumOutstandingFunc: func(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
			return dec("330.00"), nil
		},
	}
	penalties := &mockPenaltyApplier{}

	svc := newTestService(obligations, loans, &mockGroupRepo{}, penalties)

	summary, err := svc.FundSummary(context.Background(), groupID, today)
	require.NoError(t, err)

	assert.Equal(t, 1, penalties.applied, "penalties must be realized before the read")
	assert.Equal(t, groupID, summary.GroupID)
	assert.True(t, summary.Collected.Equal(dec("2000.00")))
	assert.True(t, summary.Disbursed.Equal(dec("500.00")))
	assert.True(t, summary.Repaid.Equal(dec("220.00")))
	assert.True(t, summary.OutstandingLoans.Equal(dec("330.00")))
	assert.True(t, summary.Available.Equal(dec("1670.00")), "got %s", summary.Available)
}

func TestService_FundSummary_PenaltyApplyFails(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("boom")
	penalties := &mockPenaltyApplier{
		ApplyFunc: func(ctx context.Context, groupID uuid.UUID, today time.Time) (penalty.Result, error) {
			return penalty.Result{}, wantErr
		},
	}

	svc := newTestService(&mockObligationRepo{}, &mockLoanRepo{}, &mockGroupRepo{}, penalties)

	_, err := svc.FundSummary(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, wantErr)
}

func TestService_SavingSummary(t *testing.T) {
	t.Parallel()

	groupID := uuid.New()
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	groups := &mockGroupRepo{
		ListActiveMembershipsFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Membership, error) {
			return []domain.Membership{{}, {}, {}}, nil
		},
	}
	obligations := &mockObligationRepo{
		ListFunc: func(ctx context.Context, f obligation.Filter) ([]domain.Obligation, error) {
			require.NotNil(t, f.GroupID)
			assert.Equal(t, groupID, *f.GroupID)
			return []domain.Obligation{
				{CycleNumber: 1, Amount: dec("100.00"), Paid: true},
				{CycleNumber: 1, Amount: dec("100.00"), PenaltyAmount: dec("5.00"), Paid: true},
				{CycleNumber: 2, Amount: dec("100.00"), PenaltyAmount: dec("5.00"), Paid: false},
			}, nil
		},
	}
	penalties := &mockPenaltyApplier{}

	svc := newTestService(obligations, &mockLoanRepo{}, groups, penalties)

	summary, err := svc.SavingSummary(context.Background(), groupID, today)
	require.NoError(t, err)

	assert.Equal(t, 1, penalties.applied)
	assert.Equal(t, 2, summary.Cycles)
	assert.Equal(t, 3, summary.ActiveMembers)
	assert.True(t, summary.ExpectedTotal.Equal(dec("300.00")))
	assert.True(t, summary.PaidTotal.Equal(dec("200.00")))
	assert.True(t, summary.UnpaidTotal.Equal(dec("100.00")))
	assert.True(t, summary.PenaltiesAssessed.Equal(dec("10.00")))
	assert.True(t, summary.PenaltiesCollected.Equal(dec("5.00")))
}

func TestService_MemberSummary(t *testing.T) {
	t.Parallel()

	groupID := uuid.New()
	memberID := uuid.New()
	activeLoan := domain.Loan{ID: uuid.New(), GroupID: groupID, MemberID: memberID, Active: true}

	obligations := &mockObligationRepo{
		ListFunc: func(ctx context.Context, f obligation.Filter) ([]domain.Obligation, error) {
			require.NotNil(t, f.MemberID)
			assert.Equal(t, memberID, *f.MemberID)
			return []domain.Obligation{
				{Amount: dec("100.00"), PenaltyAmount: dec("5.00"), Paid: true},
				{Amount: dec("100.00"), PenaltyAmount: dec("5.00"), Paid: false},
			}, nil
		},
	}
	loans := &mockLoanRepo{
		SumRepaidByMemberFunc: func(ctx context.Context, gID, mID uuid.UUID) (decimal.Decimal, error) {
			return dec("110.00"), nil
		},
		ListFunc: func(ctx context.Context, f loan.Filter) ([]domain.Loan, error) {
			require.NotNil(t, f.Active)
			assert.True(t, *f.Active)
			return []domain.Loan{activeLoan}, nil
		},
	}

	svc := newTestService(obligations, loans, &mockGroupRepo{}, &mockPenaltyApplier{})

	summary, err := svc.MemberSummary(context.Background(), groupID, memberID, time.Now())
	require.NoError(t, err)

	assert.True(t, summary.SavingsPaid.Equal(dec("105.00")))
	assert.True(t, summary.SavingsUnpaid.Equal(dec("100.00")))
	assert.True(t, summary.PenaltiesDue.Equal(dec("5.00")))
	assert.True(t, summary.LoanRepaid.Equal(dec("110.00")))
	require.NotNil(t, summary.ActiveLoan)
	assert.Equal(t, activeLoan.ID, summary.ActiveLoan.ID)
}

func TestService_MemberSummary_NoActiveLoan(t *testing.T) {
	t.Parallel()

	obligations := &mockObligationRepo{
		ListFunc: func(ctx context.Context, f obligation.Filter) ([]domain.Obligation, error) {
			return nil, nil
		},
	}
	loans := &mockLoanRepo{
		SumRepaidByMemberFunc: func(ctx context.Context, gID, mID uuid.UUID) (decimal.Decimal, error) {
			return decimal.Zero, nil
		},
		ListFunc: func(ctx context.Context, f loan.Filter) ([]domain.Loan, error) {
			return nil, nil
		},
	}

	svc := newTestService(obligations, loans, &mockGroupRepo{}, &mockPenaltyApplier{})

	summary, err := svc.MemberSummary(context.Background(), uuid.New(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, summary.ActiveLoan)
}
