package obligation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spdarshan46/pund-management/internal/adapter/postgres/obligation"
	"github.com/spdarshan46/pund-management/internal/adapter/postgres/testhelper"
	"github.com/spdarshan46/pund-management/internal/domain"
)

func newRepo(t *testing.T) (*obligation.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return obligation.New(pool), pool
}

func buildObligation(groupID, memberID uuid.UUID, cycle int, dueDate time.Time) domain.Obligation {
	return domain.Obligation{
		ID:          uuid.New(),
		GroupID:     groupID,
		MemberID:    memberID,
		CycleNumber: cycle,
		Amount:      decimal.NewFromInt(100),
		DueDate:     domain.Date(dueDate),
	}
}

func TestRepo_CreateBatch_And_Get(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m1 := testhelper.SeedMember(t, pool, group.ID)
	m2 := testhelper.SeedMember(t, pool, group.ID)

	due := domain.AddDays(time.Now(), 7)
	batch := []domain.Obligation{
		buildObligation(group.ID, m1.MemberID, 1, due),
		buildObligation(group.ID, m2.MemberID, 1, due),
	}

	if err := repo.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("CreateBatch: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, batch[0].ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if got.MemberID != m1.MemberID {
		t.Errorf("MemberID mismatch: got %s, want %s", got.MemberID, m1.MemberID)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Amount mismatch: got %s", got.Amount)
	}
	if got.Paid {
		t.Error("new obligation should be unpaid")
	}
	if !got.PenaltyAmount.IsZero() {
		t.Errorf("new obligation should carry no penalty, got %s", got.PenaltyAmount)
	}
	if !got.DueDate.Equal(due) {
		t.Errorf("DueDate mismatch: got %s, want %s", got.DueDate, due)
	}
}

func TestRepo_CreateBatch_DuplicateCycleMember(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m := testhelper.SeedMember(t, pool, group.ID)

	due := domain.AddDays(time.Now(), 7)
	if err := repo.CreateBatch(ctx, []domain.Obligation{buildObligation(group.ID, m.MemberID, 1, due)}); err != nil {
		t.Fatalf("CreateBatch: unexpected error: %v", err)
	}

	err := repo.CreateBatch(ctx, []domain.Obligation{buildObligation(group.ID, m.MemberID, 1, due)})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate (member, cycle), got: %v", err)
	}
}

func TestRepo_CreateBatch_Empty(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	if err := repo.CreateBatch(context.Background(), nil); err != nil {
		t.Fatalf("CreateBatch(nil): unexpected error: %v", err)
	}
}

func TestRepo_MaxCycle_And_CycleExists(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m := testhelper.SeedMember(t, pool, group.ID)

	maxCycle, err := repo.MaxCycle(ctx, group.ID)
	if err != nil {
		t.Fatalf("MaxCycle: unexpected error: %v", err)
	}
	if maxCycle != 0 {
		t.Errorf("MaxCycle of empty group = %d, want 0", maxCycle)
	}

	testhelper.SeedObligation(t, pool, group.ID, m.MemberID, 1, time.Now())
	testhelper.SeedObligation(t, pool, group.ID, m.MemberID, 2, time.Now())

	maxCycle, err = repo.MaxCycle(ctx, group.ID)
	if err != nil {
		t.Fatalf("MaxCycle: unexpected error: %v", err)
	}
	if maxCycle != 2 {
		t.Errorf("MaxCycle = %d, want 2", maxCycle)
	}

	exists, err := repo.CycleExists(ctx, group.ID, 2)
	if err != nil {
		t.Fatalf("CycleExists: unexpected error: %v", err)
	}
	if !exists {
		t.Error("CycleExists(2) = false, want true")
	}

	exists, err = repo.CycleExists(ctx, group.ID, 3)
	if err != nil {
		t.Fatalf("CycleExists: unexpected error: %v", err)
	}
	if exists {
		t.Error("CycleExists(3) = true, want false")
	}
}

func TestRepo_StampPenalties_Idempotent(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m1 := testhelper.SeedMember(t, pool, group.ID)
	m2 := testhelper.SeedMember(t, pool, group.ID)

	today := time.Now()
	overdue := testhelper.SeedObligation(t, pool, group.ID, m1.MemberID, 1, domain.AddDays(today, -7))
	paid := testhelper.SeedPaidObligation(t, pool, group.ID, m2.MemberID, 1, domain.AddDays(today, -7))

	penalty := decimal.NewFromInt(5)

	stamped, err := repo.StampPenalties(ctx, group.ID, 1, penalty)
	if err != nil {
		t.Fatalf("StampPenalties: unexpected error: %v", err)
	}
	if stamped != 1 {
		t.Fatalf("expected 1 stamped row, got %d", stamped)
	}

	got, err := repo.GetByID(ctx, overdue.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if !got.PenaltyAmount.Equal(penalty) {
		t.Errorf("PenaltyAmount = %s, want %s", got.PenaltyAmount, penalty)
	}

	// The paid obligation stays untouched.
	gotPaid, err := repo.GetByID(ctx, paid.ID)
	if err != nil {
		t.Fatalf("GetByID paid: unexpected error: %v", err)
	}
	if !gotPaid.PenaltyAmount.IsZero() {
		t.Errorf("paid obligation penalty = %s, want 0", gotPaid.PenaltyAmount)
	}

	// Re-running stamps nothing, even with a different penalty amount.
	stamped, err = repo.StampPenalties(ctx, group.ID, 1, decimal.NewFromInt(99))
	if err != nil {
		t.Fatalf("StampPenalties rerun: unexpected error: %v", err)
	}
	if stamped != 0 {
		t.Fatalf("rerun stamped %d rows, want 0", stamped)
	}

	got, err = repo.GetByID(ctx, overdue.ID)
	if err != nil {
		t.Fatalf("GetByID after rerun: unexpected error: %v", err)
	}
	if !got.PenaltyAmount.Equal(penalty) {
		t.Errorf("penalty changed on rerun: got %s, want %s", got.PenaltyAmount, penalty)
	}
}

func TestRepo_StampPenalties_IncludesDueToday(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m := testhelper.SeedMember(t, pool, group.ID)

	// Due exactly today, the normal on-cadence rhythm: the previous cycle's
	// obligations fall due the day the next cycle is generated. The per-cycle
	// stamp covers them regardless of due date.
	today := time.Now()
	o := testhelper.SeedObligation(t, pool, group.ID, m.MemberID, 1, today)

	penalty := decimal.NewFromInt(5)
	stamped, err := repo.StampPenalties(ctx, group.ID, 1, penalty)
	if err != nil {
		t.Fatalf("StampPenalties: unexpected error: %v", err)
	}
	if stamped != 1 {
		t.Fatalf("expected 1 stamped row, got %d", stamped)
	}

	got, err := repo.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if !got.PenaltyAmount.Equal(penalty) {
		t.Errorf("PenaltyAmount = %s, want %s", got.PenaltyAmount, penalty)
	}
}

func TestRepo_MarkPaid(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m := testhelper.SeedMember(t, pool, group.ID)

	o := testhelper.SeedObligation(t, pool, group.ID, m.MemberID, 1, time.Now())
	paidAt := time.Now().UTC().Truncate(time.Microsecond)

	if err := repo.MarkPaid(ctx, o.ID, paidAt); err != nil {
		t.Fatalf("MarkPaid: unexpected error: %v", err)
	}

	got, err := repo.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if !got.Paid {
		t.Error("obligation should be paid")
	}
	if got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
		t.Errorf("PaidAt mismatch: got %v, want %s", got.PaidAt, paidAt)
	}

	// Second payment attempt fails without changing paid_at.
	err = repo.MarkPaid(ctx, o.ID, time.Now().UTC())
	if !errors.Is(err, domain.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got: %v", err)
	}

	got, err = repo.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if !got.PaidAt.Equal(paidAt) {
		t.Errorf("PaidAt changed on second attempt: got %v", got.PaidAt)
	}
}

func TestRepo_MarkPaid_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	err := repo.MarkPaid(context.Background(), uuid.New(), time.Now().UTC())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestRepo_List_Filters(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m1 := testhelper.SeedMember(t, pool, group.ID)
	m2 := testhelper.SeedMember(t, pool, group.ID)

	testhelper.SeedObligation(t, pool, group.ID, m1.MemberID, 1, time.Now())
	testhelper.SeedPaidObligation(t, pool, group.ID, m2.MemberID, 1, time.Now())
	testhelper.SeedObligation(t, pool, group.ID, m1.MemberID, 2, time.Now())

	unpaid := false
	all, err := repo.List(ctx, obligation.Filter{GroupID: &group.ID})
	if err != nil {
		t.Fatalf("List: unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 obligations, got %d", len(all))
	}

	paidOnly := true
	paidList, err := repo.List(ctx, obligation.Filter{GroupID: &group.ID, Paid: &paidOnly})
	if err != nil {
		t.Fatalf("List paid: unexpected error: %v", err)
	}
	if len(paidList) != 1 || paidList[0].MemberID != m2.MemberID {
		t.Fatalf("paid filter mismatch: %+v", paidList)
	}

	cycle := 1
	cycleUnpaid, err := repo.List(ctx, obligation.Filter{
		GroupID:     &group.ID,
		CycleNumber: &cycle,
		Paid:        &unpaid,
	})
	if err != nil {
		t.Fatalf("List cycle unpaid: unexpected error: %v", err)
	}
	if len(cycleUnpaid) != 1 || cycleUnpaid[0].MemberID != m1.MemberID {
		t.Fatalf("cycle+unpaid filter mismatch: %+v", cycleUnpaid)
	}
}

func TestRepo_SumCollected(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m1 := testhelper.SeedMember(t, pool, group.ID)
	m2 := testhelper.SeedMember(t, pool, group.ID)

	// Two paid at 100 each, one unpaid.
	testhelper.SeedPaidObligation(t, pool, group.ID, m1.MemberID, 1, time.Now())
	testhelper.SeedPaidObligation(t, pool, group.ID, m2.MemberID, 1, time.Now())
	testhelper.SeedObligation(t, pool, group.ID, m1.MemberID, 2, time.Now())

	sum, err := repo.SumCollected(ctx, group.ID)
	if err != nil {
		t.Fatalf("SumCollected: unexpected error: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(200)) {
		t.Errorf("SumCollected = %s, want 200", sum)
	}

	byMember, err := repo.SumCollectedByMember(ctx, group.ID, m1.MemberID)
	if err != nil {
		t.Fatalf("SumCollectedByMember: unexpected error: %v", err)
	}
	if !byMember.Equal(decimal.NewFromInt(100)) {
		t.Errorf("SumCollectedByMember = %s, want 100", byMember)
	}
}

func TestRepo_SumCollected_ExcludesPenalties(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m := testhelper.SeedMember(t, pool, group.ID)

	// Member pays late: the obligation was stamped with a 20 penalty before
	// settlement. Only the 100 base contribution enters the fund.
	o := testhelper.SeedObligation(t, pool, group.ID, m.MemberID, 1, time.Now())
	if _, err := repo.StampPenalties(ctx, group.ID, 1, decimal.NewFromInt(20)); err != nil {
		t.Fatalf("StampPenalties: unexpected error: %v", err)
	}
	if err := repo.MarkPaid(ctx, o.ID, time.Now()); err != nil {
		t.Fatalf("MarkPaid: unexpected error: %v", err)
	}

	sum, err := repo.SumCollected(ctx, group.ID)
	if err != nil {
		t.Fatalf("SumCollected: unexpected error: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Errorf("SumCollected = %s, want 100", sum)
	}

	byMember, err := repo.SumCollectedByMember(ctx, group.ID, m.MemberID)
	if err != nil {
		t.Fatalf("SumCollectedByMember: unexpected error: %v", err)
	}
	if !byMember.Equal(decimal.NewFromInt(100)) {
		t.Errorf("SumCollectedByMember = %s, want 100", byMember)
	}
}

func TestRepo_CountByCycle(t *testing.T) {
	t.Parallel()
	repo, pool := newRepo(t)
	ctx := context.Background()
	group := testhelper.SeedGroup(t, pool)
	m1 := testhelper.SeedMember(t, pool, group.ID)
	m2 := testhelper.SeedMember(t, pool, group.ID)
	m3 := testhelper.SeedMember(t, pool, group.ID)

	testhelper.SeedPaidObligation(t, pool, group.ID, m1.MemberID, 1, time.Now())
	testhelper.SeedObligation(t, pool, group.ID, m2.MemberID, 1, time.Now())
	testhelper.SeedObligation(t, pool, group.ID, m3.MemberID, 1, time.Now())

	paid, unpaid, err := repo.CountByCycle(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("CountByCycle: unexpected error: %v", err)
	}
	if paid != 1 || unpaid != 2 {
		t.Errorf("CountByCycle = (%d, %d), want (1, 2)", paid, unpaid)
	}
}
