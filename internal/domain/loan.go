package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan is a principal borrowed from the group fund, repaid via scheduled
// installments. Terms (rate, payable, cycles, remaining) stay zero while
// PENDING and are computed at approval. At most one loan per
// (group, member) may be active at a time.
type Loan struct {
	ID              uuid.UUID
	GroupID         uuid.UUID
	MemberID        uuid.UUID
	Principal       decimal.Decimal
	InterestRate    decimal.Decimal // percentage snapshot at approval
	TotalPayable    decimal.Decimal
	TotalCycles     int
	RemainingAmount decimal.Decimal
	Status          LoanStatus
	Active          bool
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	CreatedAt       time.Time
}

// ReduceRemaining applies one EMI payment to the remaining balance,
// clamping at zero. When the balance reaches zero the loan transitions to
// CLOSED and inactive in the same step. Reports whether the loan closed.
func (l *Loan) ReduceRemaining(emi decimal.Decimal) bool {
	l.RemainingAmount = l.RemainingAmount.Sub(emi)
	if l.RemainingAmount.Sign() <= 0 {
		l.RemainingAmount = decimal.Zero
		l.Status = LoanStatusClosed
		l.Active = false
		return true
	}
	return false
}

// Installment is one scheduled repayment unit of a loan. The schedule is
// generated once at approval and never regenerated.
type Installment struct {
	ID            uuid.UUID
	LoanID        uuid.UUID
	CycleNumber   int
	EMIAmount     decimal.Decimal
	PenaltyAmount decimal.Decimal
	DueDate       time.Time // calendar date
	Paid          bool
	PaidAt        *time.Time
	CreatedAt     time.Time
}

// IsOverdue reports whether the installment is unpaid and past due on the
// given date (strictly before today).
func (i Installment) IsOverdue(today time.Time) bool {
	return !i.Paid && i.DueDate.Before(Date(today))
}

// TotalDue is the EMI plus any stamped penalty.
func (i Installment) TotalDue() decimal.Decimal {
	return i.EMIAmount.Add(i.PenaltyAmount)
}
