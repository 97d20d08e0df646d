package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spdarshan46/pund-management/internal/domain"
)

// RequestInput holds parameters for a loan request.
type RequestInput struct {
	GroupID   uuid.UUID
	MemberID  uuid.UUID
	Principal decimal.Decimal
}

// Validate validates the loan request input.
func (i RequestInput) Validate() error {
	var errs []domain.FieldError

	if i.GroupID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "group_id", Message: "required"})
	}
	if i.MemberID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "member_id", Message: "required"})
	}
	if i.Principal.Sign() <= 0 {
		errs = append(errs, domain.FieldError{Field: "principal", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ApproveInput holds parameters for loan approval. Cycles overrides the
// rule's default loan term when positive; zero means use the default.
type ApproveInput struct {
	LoanID     uuid.UUID
	ApproverID uuid.UUID
	Cycles     int
	Today      time.Time
}

// Validate validates the loan approval input.
func (i ApproveInput) Validate() error {
	var errs []domain.FieldError

	if i.LoanID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "loan_id", Message: "required"})
	}
	if i.ApproverID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "approver_id", Message: "required"})
	}
	if i.Cycles < 0 {
		errs = append(errs, domain.FieldError{Field: "cycles", Message: "must not be negative"})
	}
	if i.Today.IsZero() {
		errs = append(errs, domain.FieldError{Field: "today", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// RejectInput holds parameters for loan rejection.
type RejectInput struct {
	LoanID     uuid.UUID
	RejectedBy uuid.UUID
	Today      time.Time
}

// Validate validates the loan rejection input.
func (i RejectInput) Validate() error {
	var errs []domain.FieldError

	if i.LoanID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "loan_id", Message: "required"})
	}
	if i.RejectedBy == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "rejected_by", Message: "required"})
	}
	if i.Today.IsZero() {
		errs = append(errs, domain.FieldError{Field: "today", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// PayInstallmentInput holds parameters for installment settlement.
type PayInstallmentInput struct {
	InstallmentID uuid.UUID
	PaidAt        time.Time
}

// Validate validates the installment settlement input.
func (i PayInstallmentInput) Validate() error {
	var errs []domain.FieldError

	if i.InstallmentID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "installment_id", Message: "required"})
	}
	if i.PaidAt.IsZero() {
		errs = append(errs, domain.FieldError{Field: "paid_at", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
