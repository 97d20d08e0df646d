package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an immutable record of a sensitive state transition.
// Append-only: the ledger core writes entries and never reads them back;
// the reporting surface lists them per group.
type AuditLog struct {
	ID          uuid.UUID
	GroupID     uuid.UUID
	ActorID     uuid.UUID
	Action      AuditAction
	Description string
	CreatedAt   time.Time
}
