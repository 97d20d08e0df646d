package domain

import (
	"time"

	"github.com/google/uuid"
)

// Group is a savings circle. Groups and memberships are owned by the
// membership collaborator; the ledger core reads them by id and never
// mutates them, except for locking the group row to serialize mutations.
type Group struct {
	ID        uuid.UUID
	Name      string
	Cadence   Cadence
	StartDate time.Time
	Active    bool
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

// Membership links a user to a group with a role. Read-only for the core.
type Membership struct {
	ID       uuid.UUID
	GroupID  uuid.UUID
	MemberID uuid.UUID
	Role     MemberRole
	Active   bool
	JoinedAt time.Time
}
