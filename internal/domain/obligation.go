package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Obligation is one member's required contribution for one cycle.
// Amount is a snapshot of the governing rule's contribution amount at
// generation time and is immutable afterwards. PenaltyAmount is stamped at
// most once; the paid flag flips at most once.
type Obligation struct {
	ID            uuid.UUID
	GroupID       uuid.UUID
	MemberID      uuid.UUID
	CycleNumber   int
	Amount        decimal.Decimal
	PenaltyAmount decimal.Decimal
	Paid          bool
	PaidAt        *time.Time
	DueDate       time.Time // calendar date
	CreatedAt     time.Time
}

// IsOverdue reports whether the obligation is unpaid and past due on the
// given date (strictly before today).
func (o Obligation) IsOverdue(today time.Time) bool {
	return !o.Paid && o.DueDate.Before(Date(today))
}

// TotalDue is the amount plus any stamped penalty.
func (o Obligation) TotalDue() decimal.Decimal {
	return o.Amount.Add(o.PenaltyAmount)
}
