// Package group implements the Group and Membership repository using
// PostgreSQL. Groups and memberships are owned by the membership collaborator;
// this repository reads them, locks the group row to serialize ledger
// mutations, and flips the active flag on close/reopen.
package group

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/spdarshan46/pund-management/internal/adapter/postgres"
	"github.com/spdarshan46/pund-management/internal/domain"
)

// Filter narrows ListGroups results. Nil fields are ignored.
type Filter struct {
	Active    *bool
	CreatedBy *uuid.UUID
	MemberID  *uuid.UUID // groups where this member has an active membership
	Limit     uint64
	Offset    uint64
}

// Repo provides group and membership persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new group repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const groupColumns = `id, name, cadence, start_date, active, created_by, created_at`

const getGroupSQL = `
SELECT ` + groupColumns + `
FROM groups
WHERE id = $1`

const lockGroupSQL = `
SELECT ` + groupColumns + `
FROM groups
WHERE id = $1
FOR UPDATE`

const setGroupActiveSQL = `
UPDATE groups
SET active = $2
WHERE id = $1
RETURNING id`

const getMembershipSQL = `
SELECT id, group_id, member_id, role, active, joined_at
FROM memberships
WHERE group_id = $1 AND member_id = $2`

const listActiveMembershipsSQL = `
SELECT id, group_id, member_id, role, active, joined_at
FROM memberships
WHERE group_id = $1 AND active
ORDER BY joined_at, id`

// GetByID returns a group by primary key.
func (r *Repo) GetByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	g, err := scanGroup(q.QueryRow(ctx, getGroupSQL, groupID))
	if err != nil {
		return domain.Group{}, mapError(err, "group", groupID)
	}
	return g, nil
}

// LockByID loads a group with SELECT FOR UPDATE, serializing concurrent
// ledger mutations on the same group. Only meaningful inside a transaction.
func (r *Repo) LockByID(ctx context.Context, groupID uuid.UUID) (domain.Group, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	g, err := scanGroup(q.QueryRow(ctx, lockGroupSQL, groupID))
	if err != nil {
		return domain.Group{}, mapError(err, "group", groupID)
	}
	return g, nil
}

// SetActive flips the group's active flag. Used by close and reopen.
func (r *Repo) SetActive(ctx context.Context, groupID uuid.UUID, active bool) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var id uuid.UUID
	if err := q.QueryRow(ctx, setGroupActiveSQL, groupID, active).Scan(&id); err != nil {
		return mapError(err, "group", groupID)
	}
	return nil
}

// GetMembership returns the membership of a member in a group regardless of
// its active flag. Callers check Active themselves.
func (r *Repo) GetMembership(ctx context.Context, groupID, memberID uuid.UUID) (domain.Membership, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	m, err := scanMembership(q.QueryRow(ctx, getMembershipSQL, groupID, memberID))
	if err != nil {
		return domain.Membership{}, mapError(err, "membership", memberID)
	}
	return m, nil
}

// ListActiveMemberships returns all active memberships of a group in a
// stable order (joined_at, then id).
func (r *Repo) ListActiveMemberships(ctx context.Context, groupID uuid.UUID) ([]domain.Membership, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, listActiveMembershipsSQL, groupID)
	if err != nil {
		return nil, fmt.Errorf("list memberships for group %s: %w", groupID, err)
	}
	defer rows.Close()

	var memberships []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return memberships, nil
}

// ListGroups returns groups matching the filter, newest first.
func (r *Repo) ListGroups(ctx context.Context, f Filter) ([]domain.Group, error) {
	builder := qb.
		Select("g.id", "g.name", "g.cadence", "g.start_date", "g.active", "g.created_by", "g.created_at").
		From("groups g").
		OrderBy("g.created_at DESC", "g.id")

	if f.Active != nil {
		builder = builder.Where(sq.Eq{"g.active": *f.Active})
	}
	if f.CreatedBy != nil {
		builder = builder.Where(sq.Eq{"g.created_by": *f.CreatedBy})
	}
	if f.MemberID != nil {
		builder = builder.
			Join("memberships m ON m.group_id = g.id").
			Where(sq.Eq{"m.member_id": *f.MemberID}).
			Where("m.active")
	}
	if f.Limit > 0 {
		builder = builder.Limit(f.Limit)
	}
	if f.Offset > 0 {
		builder = builder.Offset(f.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list groups query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	return groups, nil
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

func scanGroup(row pgx.Row) (domain.Group, error) {
	var g domain.Group
	err := row.Scan(&g.ID, &g.Name, &g.Cadence, &g.StartDate, &g.Active, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func scanMembership(row pgx.Row) (domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.ID, &m.GroupID, &m.MemberID, &m.Role, &m.Active, &m.JoinedAt)
	if err != nil {
		return domain.Membership{}, err
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

// mapError converts pgx/pgconn errors into domain errors.
func mapError(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}

	// context errors pass through as-is
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
