package cycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/spdarshan46/pund-management/internal/domain"
)

// GenerateInput holds parameters for cycle generation.
type GenerateInput struct {
	GroupID uuid.UUID
	Today   time.Time
}

// Validate validates the cycle generation input.
func (i GenerateInput) Validate() error {
	var errs []domain.FieldError

	if i.GroupID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "group_id", Message: "required"})
	}
	if i.Today.IsZero() {
		errs = append(errs, domain.FieldError{Field: "today", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// PayObligationInput holds parameters for obligation settlement.
type PayObligationInput struct {
	ObligationID uuid.UUID
	PaidAt       time.Time
}

// Validate validates the obligation settlement input.
func (i PayObligationInput) Validate() error {
	var errs []domain.FieldError

	if i.ObligationID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "obligation_id", Message: "required"})
	}
	if i.PaidAt.IsZero() {
		errs = append(errs, domain.FieldError{Field: "paid_at", Message: "required"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
