// Package group implements group lifecycle reads and the close/reopen
// switch. Closing a group blocks every ledger mutation behind the active
// flag; reopening lifts the block. Both transitions are audited.
package group

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	grouprepo "github.com/spdarshan46/pund-management/internal/adapter/postgres/group"
	"github.com/spdarshan46/pund-management/internal/domain"
)

// groupRepo defines the group repository interface needed by the group
// service.
type groupRepo interface {
	GetByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error)
	LockByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error)
	SetActive(ctx context.Context, groupID uuid.UUID, active bool) error
	ListActiveMemberships(ctx context.Context, groupID uuid.UUID) ([]domain.Membership, error)
	ListGroups(ctx context.Context, f grouprepo.Filter) ([]domain.Group, error)
}

// auditRepo defines the audit log repository interface needed by the group
// service.
type auditRepo interface {
	Log(ctx context.Context, entry domain.AuditLog) error
	ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]domain.AuditLog, error)
}

// txManager defines the transaction manager interface needed by the group
// service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements group operations.
type Service struct {
	log    *slog.Logger
	groups groupRepo
	audit  auditRepo
	tx     txManager
}

// NewService creates a new group service instance.
func NewService(logger *slog.Logger, groups groupRepo, audit auditRepo, tx txManager) *Service {
	return &Service{
		log:    logger.With("service", "group"),
		groups: groups,
		audit:  audit,
		tx:     tx,
	}
}

// Get returns one group by id.
func (s *Service) Get(ctx context.Context, groupID uuid.UUID) (domain.Group, error) {
	return s.groups.GetByID(ctx, groupID)
}

// List returns groups matching the filter.
func (s *Service) List(ctx context.Context, f grouprepo.Filter) ([]domain.Group, error) {
	return s.groups.ListGroups(ctx, f)
}

// Members returns the group's active memberships.
func (s *Service) Members(ctx context.Context, groupID uuid.UUID) ([]domain.Membership, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.groups.ListActiveMemberships(ctx, groupID)
}

// Close deactivates a group. Ledger mutations fail with ErrGroupInactive
// while closed; history stays readable. Closing an already closed group
// returns ErrGroupInactive.
func (s *Service) Close(ctx context.Context, groupID, actorID uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		group, err := s.groups.LockByID(ctx, groupID)
		if err != nil {
			return err
		}
		if !group.Active {
			return fmt.Errorf("group %s: %w", group.ID, domain.ErrGroupInactive)
		}

		if err := s.groups.SetActive(ctx, groupID, false); err != nil {
			return err
		}

		return s.audit.Log(ctx, domain.AuditLog{
			ID:          uuid.New(),
			GroupID:     groupID,
			ActorID:     actorID,
			Action:      domain.AuditActionGroupClosed,
			Description: fmt.Sprintf("group %q closed", group.Name),
		})
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "group closed", "group_id", groupID, "actor_id", actorID)
	return nil
}

// Reopen reactivates a closed group. Reopening an active group returns
// ErrConflict.
func (s *Service) Reopen(ctx context.Context, groupID, actorID uuid.UUID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		group, err := s.groups.LockByID(ctx, groupID)
		if err != nil {
			return err
		}
		if group.Active {
			return fmt.Errorf("group %s is already active: %w", group.ID, domain.ErrConflict)
		}

		if err := s.groups.SetActive(ctx, groupID, true); err != nil {
			return err
		}

		return s.audit.Log(ctx, domain.AuditLog{
			ID:          uuid.New(),
			GroupID:     groupID,
			ActorID:     actorID,
			Action:      domain.AuditActionGroupReopened,
			Description: fmt.Sprintf("group %q reopened", group.Name),
		})
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "group reopened", "group_id", groupID, "actor_id", actorID)
	return nil
}

// AuditTrail returns the group's audit entries, newest first.
func (s *Service) AuditTrail(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]domain.AuditLog, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.audit.ListByGroup(ctx, groupID, limit, offset)
}
