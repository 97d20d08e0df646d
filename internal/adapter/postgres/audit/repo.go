// Package audit implements the AuditLog repository using PostgreSQL.
// It provides append-only operations for audit log records.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/spdarshan46/pund-management/internal/adapter/postgres"
	"github.com/spdarshan46/pund-management/internal/domain"
)

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new audit repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const createAuditSQL = `
INSERT INTO audit_logs (id, group_id, actor_id, action, description, created_at)
VALUES ($1, $2, $3, $4, $5, now())
RETURNING id, group_id, actor_id, action, description, created_at`

const listAuditByGroupSQL = `
SELECT id, group_id, actor_id, action, description, created_at
FROM audit_logs
WHERE group_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

// Create inserts a new audit record and returns the persisted entry.
func (r *Repo) Create(ctx context.Context, entry domain.AuditLog) (domain.AuditLog, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, createAuditSQL,
		entry.ID, entry.GroupID, entry.ActorID, entry.Action, entry.Description)

	persisted, err := scanAudit(row)
	if err != nil {
		return domain.AuditLog{}, mapError(err, "audit_log", entry.ID)
	}
	return persisted, nil
}

// Log creates an audit record without returning it (fire-and-forget).
func (r *Repo) Log(ctx context.Context, entry domain.AuditLog) error {
	_, err := r.Create(ctx, entry)
	return err
}

// ListByGroup returns a group's audit trail, newest first, with pagination.
func (r *Repo) ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]domain.AuditLog, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, listAuditByGroupSQL, groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit_logs for group %s: %w", groupID, err)
	}
	defer rows.Close()

	var entries []domain.AuditLog
	for rows.Next() {
		entry, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit_log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit_logs: %w", err)
	}

	return entries, nil
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

func scanAudit(row pgx.Row) (domain.AuditLog, error) {
	var entry domain.AuditLog
	err := row.Scan(
		&entry.ID, &entry.GroupID, &entry.ActorID, &entry.Action,
		&entry.Description, &entry.CreatedAt,
	)
	if err != nil {
		return domain.AuditLog{}, err
	}
	return entry, nil
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
