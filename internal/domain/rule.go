package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleVersion is an effective-dated snapshot of a group's contribution and
// loan terms. The version governing a date D is the one with the greatest
// EffectiveFrom <= D; there is never more than one version per
// (group, effective_from).
type RuleVersion struct {
	ID                  uuid.UUID
	GroupID             uuid.UUID
	ContributionAmount  decimal.Decimal
	LoanInterestRate    decimal.Decimal // percentage, 2 fractional digits
	MissedSavingPenalty decimal.Decimal
	MissedLoanPenalty   decimal.Decimal
	DefaultLoanCycles   int
	EffectiveFrom       time.Time // calendar date
	CreatedAt           time.Time
}

// Governs reports whether this version is in effect on the given date.
// It does not know about newer versions; resolution across versions picks
// the governing one with the greatest EffectiveFrom.
func (r RuleVersion) Governs(asOf time.Time) bool {
	return !r.EffectiveFrom.After(Date(asOf))
}
