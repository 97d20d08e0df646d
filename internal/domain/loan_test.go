package domain

import (
	"testing"
	"time"
)

func TestLoan_ReduceRemaining(t *testing.T) {
	t.Parallel()

	loan := Loan{
		Status:          LoanStatusApproved,
		Active:          true,
		RemainingAmount: dec("330"),
	}

	if closed := loan.ReduceRemaining(dec("110")); closed {
		t.Fatal("loan should not close with balance remaining")
	}
	if !loan.RemainingAmount.Equal(dec("220")) {
		t.Errorf("remaining = %s, want 220", loan.RemainingAmount)
	}
	if loan.Status != LoanStatusApproved || !loan.Active {
		t.Error("loan should stay approved and active")
	}
}

func TestLoan_ReduceRemaining_ClosesAtExactlyZero(t *testing.T) {
	t.Parallel()

	loan := Loan{
		Status:          LoanStatusApproved,
		Active:          true,
		RemainingAmount: dec("110"),
	}

	if closed := loan.ReduceRemaining(dec("110")); !closed {
		t.Fatal("loan should close when remaining reaches exactly zero")
	}
	if !loan.RemainingAmount.IsZero() {
		t.Errorf("remaining = %s, want 0", loan.RemainingAmount)
	}
	if loan.Status != LoanStatusClosed {
		t.Errorf("status = %s, want CLOSED", loan.Status)
	}
	if loan.Active {
		t.Error("closed loan must be inactive")
	}
}

func TestLoan_ReduceRemaining_ClampsBelowZero(t *testing.T) {
	t.Parallel()

	loan := Loan{
		Status:          LoanStatusApproved,
		Active:          true,
		RemainingAmount: dec("100"),
	}

	if closed := loan.ReduceRemaining(dec("110.50")); !closed {
		t.Fatal("loan should close when payment exceeds remaining")
	}
	if !loan.RemainingAmount.IsZero() {
		t.Errorf("remaining clamps to 0, got %s", loan.RemainingAmount)
	}
}

func TestObligation_IsOverdue(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, 5, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		due  time.Time
		paid bool
		want bool
	}{
		{"due yesterday unpaid", time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC), false, true},
		{"due today unpaid", time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC), false, false},
		{"due tomorrow unpaid", time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC), false, false},
		{"due yesterday paid", time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			o := Obligation{DueDate: tt.due, Paid: tt.paid}
			if got := o.IsOverdue(today); got != tt.want {
				t.Errorf("IsOverdue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstallment_TotalDue(t *testing.T) {
	t.Parallel()

	inst := Installment{EMIAmount: dec("110"), PenaltyAmount: dec("15")}
	if !inst.TotalDue().Equal(dec("125")) {
		t.Errorf("TotalDue = %s, want 125", inst.TotalDue())
	}
}

func TestDate_NormalizesToMidnightUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2025, 5, 15, 23, 45, 0, 0, loc) // 18:15 UTC same day
	got := Date(in)
	want := time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Date = %s, want %s", got, want)
	}
}
