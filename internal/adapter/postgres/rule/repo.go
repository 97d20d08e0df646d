// Package rule implements the RuleVersion repository using PostgreSQL.
// Versions are append-only snapshots keyed by (group_id, effective_from);
// the version governing a date is the one with the greatest effective_from
// not after that date.
package rule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/spdarshan46/pund-management/internal/adapter/postgres"
	"github.com/spdarshan46/pund-management/internal/domain"
)

// Repo provides rule version persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new rule version repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const ruleColumns = `id, group_id, contribution_amount, loan_interest_rate,
       missed_saving_penalty, missed_loan_penalty, default_loan_cycles,
       effective_from, created_at`

const upsertRuleSQL = `
INSERT INTO rule_versions (id, group_id, contribution_amount, loan_interest_rate,
                           missed_saving_penalty, missed_loan_penalty,
                           default_loan_cycles, effective_from, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (group_id, effective_from) DO UPDATE
SET contribution_amount   = EXCLUDED.contribution_amount,
    loan_interest_rate    = EXCLUDED.loan_interest_rate,
    missed_saving_penalty = EXCLUDED.missed_saving_penalty,
    missed_loan_penalty   = EXCLUDED.missed_loan_penalty,
    default_loan_cycles   = EXCLUDED.default_loan_cycles
RETURNING ` + ruleColumns

const resolveRuleSQL = `
SELECT ` + ruleColumns + `
FROM rule_versions
WHERE group_id = $1 AND effective_from <= $2
ORDER BY effective_from DESC
LIMIT 1`

const listRulesSQL = `
SELECT ` + ruleColumns + `
FROM rule_versions
WHERE group_id = $1
ORDER BY effective_from DESC`

// Upsert inserts a rule version, or updates the terms of the existing
// version with the same (group_id, effective_from). The returned version
// reflects what was persisted. The id of an updated row keeps its original
// value; the caller's id is only used on insert.
func (r *Repo) Upsert(ctx context.Context, rv domain.RuleVersion) (domain.RuleVersion, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, upsertRuleSQL,
		rv.ID, rv.GroupID, rv.ContributionAmount, rv.LoanInterestRate,
		rv.MissedSavingPenalty, rv.MissedLoanPenalty,
		rv.DefaultLoanCycles, rv.EffectiveFrom,
	)
	persisted, err := scanRule(row)
	if err != nil {
		return domain.RuleVersion{}, mapError(err, "rule_version", rv.ID)
	}
	return persisted, nil
}

// ResolveAt returns the rule version governing the given date, or
// domain.ErrRuleNotSet when no version is effective on or before it.
func (r *Repo) ResolveAt(ctx context.Context, groupID uuid.UUID, asOf time.Time) (domain.RuleVersion, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rv, err := scanRule(q.QueryRow(ctx, resolveRuleSQL, groupID, domain.Date(asOf)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RuleVersion{}, fmt.Errorf("rule for group %s at %s: %w",
				groupID, domain.Date(asOf).Format("2006-01-02"), domain.ErrRuleNotSet)
		}
		return domain.RuleVersion{}, mapError(err, "rule_version", groupID)
	}
	return rv, nil
}

// History returns all rule versions of a group, newest effective_from first.
func (r *Repo) History(ctx context.Context, groupID uuid.UUID) ([]domain.RuleVersion, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, listRulesSQL, groupID)
	if err != nil {
		return nil, fmt.Errorf("list rule_versions for group %s: %w", groupID, err)
	}
	defer rows.Close()

	var versions []domain.RuleVersion
	for rows.Next() {
		rv, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule_version: %w", err)
		}
		versions = append(versions, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule_versions: %w", err)
	}

	return versions, nil
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

func scanRule(row pgx.Row) (domain.RuleVersion, error) {
	var rv domain.RuleVersion
	err := row.Scan(
		&rv.ID, &rv.GroupID, &rv.ContributionAmount, &rv.LoanInterestRate,
		&rv.MissedSavingPenalty, &rv.MissedLoanPenalty, &rv.DefaultLoanCycles,
		&rv.EffectiveFrom, &rv.CreatedAt,
	)
	if err != nil {
		return domain.RuleVersion{}, err
	}
	return rv, nil
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
