package structure

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spdarshan46/pund-management/internal/domain"
)

// UpsertRuleInput holds parameters for the rule upsert operation. Today is
// the caller's calendar date; the effective date is derived from it.
type UpsertRuleInput struct {
	GroupID             uuid.UUID
	ContributionAmount  decimal.Decimal
	LoanInterestRate    decimal.Decimal
	MissedSavingPenalty decimal.Decimal
	MissedLoanPenalty   decimal.Decimal
	DefaultLoanCycles   int
	Today               time.Time
}

// Validate validates the rule upsert input.
func (i UpsertRuleInput) Validate() error {
	var errs []domain.FieldError

	if i.GroupID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "group_id", Message: "required"})
	}
	if i.ContributionAmount.Sign() <= 0 {
		errs = append(errs, domain.FieldError{Field: "contribution_amount", Message: "must be positive"})
	}
	if i.LoanInterestRate.Sign() < 0 {
		errs = append(errs, domain.FieldError{Field: "loan_interest_rate", Message: "must not be negative"})
	}
	if i.MissedSavingPenalty.Sign() < 0 {
		errs = append(errs, domain.FieldError{Field: "missed_saving_penalty", Message: "must not be negative"})
	}
	if i.MissedLoanPenalty.Sign() < 0 {
		errs = append(errs, domain.FieldError{Field: "missed_loan_penalty", Message: "must not be negative"})
	}
	if i.DefaultLoanCycles < 1 {
		errs = append(errs, domain.FieldError{Field: "default_loan_cycles", Message: "must be at least 1"})
	}
	if i.Today.IsZero() {
		errs = append(errs, domain.FieldError{Field: "today", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
