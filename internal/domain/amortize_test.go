package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPlanAmortization_EvenSplit(t *testing.T) {
	t.Parallel()

	// 500 at 10% over 5 cycles: interest 50, payable 550, emi 110.
	plan, err := PlanAmortization(dec("500"), dec("10"), 5)
	if err != nil {
		t.Fatalf("PlanAmortization: %v", err)
	}

	if !plan.Interest.Equal(dec("50")) {
		t.Errorf("Interest = %s, want 50", plan.Interest)
	}
	if !plan.TotalPayable.Equal(dec("550")) {
		t.Errorf("TotalPayable = %s, want 550", plan.TotalPayable)
	}
	if !plan.EMI.Equal(dec("110")) {
		t.Errorf("EMI = %s, want 110", plan.EMI)
	}
}

func TestPlanAmortization_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal string
		rate      string
		cycles    int
	}{
		{"zero principal", "0", "10", 5},
		{"negative principal", "-100", "10", 5},
		{"negative rate", "100", "-1", 5},
		{"zero cycles", "100", "10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := PlanAmortization(dec(tt.principal), dec(tt.rate), tt.cycles)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestInstallments_SumEqualsTotalPayable(t *testing.T) {
	t.Parallel()

	// 1000 at 7.5% over 7 cycles does not divide evenly: the final
	// installment absorbs the remainder.
	plan, err := PlanAmortization(dec("1000"), dec("7.5"), 7)
	if err != nil {
		t.Fatalf("PlanAmortization: %v", err)
	}

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	installments := plan.Installments(uuid.New(), start, 7)

	if len(installments) != 7 {
		t.Fatalf("expected 7 installments, got %d", len(installments))
	}

	sum := decimal.Zero
	for _, inst := range installments {
		sum = sum.Add(inst.EMIAmount)
	}
	if !sum.Equal(plan.TotalPayable) {
		t.Errorf("sum of EMIs = %s, want %s", sum, plan.TotalPayable)
	}

	// 1075 / 7 = 153.57 rounded; last = 1075 - 6*153.57 = 153.58.
	if !installments[0].EMIAmount.Equal(dec("153.57")) {
		t.Errorf("first EMI = %s, want 153.57", installments[0].EMIAmount)
	}
	if !installments[6].EMIAmount.Equal(dec("153.58")) {
		t.Errorf("last EMI = %s, want 153.58", installments[6].EMIAmount)
	}
}

func TestInstallments_DueDatesFollowCadence(t *testing.T) {
	t.Parallel()

	plan, err := PlanAmortization(dec("550"), dec("0"), 5)
	if err != nil {
		t.Fatalf("PlanAmortization: %v", err)
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	installments := plan.Installments(uuid.New(), start, 7)

	for i, inst := range installments {
		want := start.AddDate(0, 0, i*7)
		if !inst.DueDate.Equal(want) {
			t.Errorf("installment %d due %s, want %s", inst.CycleNumber, inst.DueDate, want)
		}
		if inst.CycleNumber != i+1 {
			t.Errorf("installment %d has cycle number %d", i, inst.CycleNumber)
		}
		if !inst.PenaltyAmount.IsZero() {
			t.Errorf("installment %d penalty should start at zero", inst.CycleNumber)
		}
	}
}

func TestInstallments_TinyPrincipalRoundsToZeroEMI(t *testing.T) {
	t.Parallel()

	// 0.01 over 5 cycles: per-cycle EMI rounds to 0.00 and the whole
	// principal lands in the final installment.
	plan, err := PlanAmortization(dec("0.01"), dec("0"), 5)
	if err != nil {
		t.Fatalf("PlanAmortization: %v", err)
	}
	if !plan.EMI.Equal(dec("0.00")) {
		t.Errorf("EMI = %s, want 0.00", plan.EMI)
	}

	installments := plan.Installments(uuid.New(), time.Now(), 7)
	sum := decimal.Zero
	for _, inst := range installments {
		sum = sum.Add(inst.EMIAmount)
	}
	if !sum.Equal(dec("0.01")) {
		t.Errorf("sum of EMIs = %s, want 0.01", sum)
	}
	if !installments[4].EMIAmount.Equal(dec("0.01")) {
		t.Errorf("last EMI = %s, want 0.01", installments[4].EMIAmount)
	}
}

func TestInstallments_SingleCycle(t *testing.T) {
	t.Parallel()

	plan, err := PlanAmortization(dec("300"), dec("12"), 1)
	if err != nil {
		t.Fatalf("PlanAmortization: %v", err)
	}

	installments := plan.Installments(uuid.New(), time.Now(), 30)
	if len(installments) != 1 {
		t.Fatalf("expected 1 installment, got %d", len(installments))
	}
	if !installments[0].EMIAmount.Equal(dec("336")) {
		t.Errorf("EMI = %s, want 336", installments[0].EMIAmount)
	}
}
