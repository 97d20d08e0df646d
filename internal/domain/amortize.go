package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmortizationPlan holds the computed terms of an approved loan: flat
// interest, total payable, and the per-cycle EMI before last-cycle true-up.
type AmortizationPlan struct {
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	Interest     decimal.Decimal
	TotalPayable decimal.Decimal
	EMI          decimal.Decimal
	Cycles       int
}

// PlanAmortization computes loan terms from principal, a flat interest
// percentage, and a cycle count.
//
//	interest      = principal * rate / 100
//	total_payable = principal + interest
//	emi           = total_payable / cycles
//
// All money is rounded to 2 fractional digits. The division remainder is
// not dropped: Installments trues up the final cycle so the schedule sums
// exactly to total_payable.
func PlanAmortization(principal, ratePercent decimal.Decimal, cycles int) (AmortizationPlan, error) {
	if principal.Sign() <= 0 {
		return AmortizationPlan{}, NewValidationError("principal", "must be positive")
	}
	if ratePercent.Sign() < 0 {
		return AmortizationPlan{}, NewValidationError("interest_rate", "must not be negative")
	}
	if cycles < 1 {
		return AmortizationPlan{}, NewValidationError("cycles", "must be at least 1")
	}

	interest := principal.Mul(ratePercent).Div(decimal.NewFromInt(100)).Round(2)
	total := principal.Add(interest)
	emi := total.Div(decimal.NewFromInt(int64(cycles))).Round(2)

	return AmortizationPlan{
		Principal:    principal,
		InterestRate: ratePercent,
		Interest:     interest,
		TotalPayable: total,
		EMI:          emi,
		Cycles:       cycles,
	}, nil
}

// Installments materializes the deterministic repayment schedule:
// Cycles installments numbered 1..N, due every cadenceDays starting at
// startDate. The final installment absorbs the rounding remainder so that
// the EMI amounts sum exactly to TotalPayable.
func (p AmortizationPlan) Installments(loanID uuid.UUID, startDate time.Time, cadenceDays int) []Installment {
	installments := make([]Installment, p.Cycles)
	start := Date(startDate)

	for i := 1; i <= p.Cycles; i++ {
		amount := p.EMI
		if i == p.Cycles {
			paidSoFar := p.EMI.Mul(decimal.NewFromInt(int64(p.Cycles - 1)))
			amount = p.TotalPayable.Sub(paidSoFar)
		}

		installments[i-1] = Installment{
			ID:            uuid.New(),
			LoanID:        loanID,
			CycleNumber:   i,
			EMIAmount:     amount,
			PenaltyAmount: decimal.Zero,
			DueDate:       AddDays(start, (i-1)*cadenceDays),
		}
	}

	return installments
}
