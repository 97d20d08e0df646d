// Package obligation implements the Obligation repository using PostgreSQL.
// Obligations are created in bulk at cycle generation; afterwards only the
// penalty stamp and the paid flag ever change, each at most once.
package obligation

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	postgres "github.com/spdarshan46/pund-management/internal/adapter/postgres"
	"github.com/spdarshan46/pund-management/internal/domain"
)

// Filter narrows List results. Nil fields are ignored.
type Filter struct {
	GroupID     *uuid.UUID
	MemberID    *uuid.UUID
	CycleNumber *int
	Paid        *bool
	Limit       uint64
	Offset      uint64
}

// Repo provides obligation persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new obligation repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const obligationColumns = `id, group_id, member_id, cycle_number, amount,
       penalty_amount, paid, paid_at, due_date, created_at`

const insertObligationSQL = `
INSERT INTO obligations (id, group_id, member_id, cycle_number, amount,
                         penalty_amount, paid, due_date, created_at)
VALUES ($1, $2, $3, $4, $5, 0, FALSE, $6, now())`

const getObligationSQL = `
SELECT ` + obligationColumns + `
FROM obligations
WHERE id = $1`

const maxCycleSQL = `
SELECT COALESCE(MAX(cycle_number), 0)
FROM obligations
WHERE group_id = $1`

const cycleExistsSQL = `
SELECT EXISTS(SELECT 1 FROM obligations WHERE group_id = $1 AND cycle_number = $2)`

// Penalty stamping is idempotent: the penalty_amount = 0 guard makes re-runs
// no-ops, and paid rows are never touched. The per-cycle stamp has no due
// date predicate: cycle generation penalizes everything still unpaid in the
// previous cycle, including rows falling due the day the next cycle starts.
const stampPenaltiesSQL = `
UPDATE obligations
SET penalty_amount = $3
WHERE group_id = $1
  AND cycle_number = $2
  AND NOT paid
  AND penalty_amount = 0`

const stampOverduePenaltiesSQL = `
UPDATE obligations
SET penalty_amount = $2
WHERE group_id = $1
  AND NOT paid
  AND penalty_amount = 0
  AND due_date < $3`

const markPaidSQL = `
UPDATE obligations
SET paid = TRUE, paid_at = $2
WHERE id = $1 AND NOT paid`

const sumCollectedSQL = `
SELECT COALESCE(SUM(amount), 0)
FROM obligations
WHERE group_id = $1 AND paid`

const sumCollectedByMemberSQL = `
SELECT COALESCE(SUM(amount), 0)
FROM obligations
WHERE group_id = $1 AND member_id = $2 AND paid`

const countByCycleSQL = `
SELECT count(*) FILTER (WHERE paid)     AS paid,
       count(*) FILTER (WHERE NOT paid) AS unpaid
FROM obligations
WHERE group_id = $1 AND cycle_number = $2`

// CreateBatch inserts all obligations in a single round trip.
func (r *Repo) CreateBatch(ctx context.Context, obligations []domain.Obligation) error {
	if len(obligations) == 0 {
		return nil
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	batch := &pgx.Batch{}
	for _, o := range obligations {
		batch.Queue(insertObligationSQL,
			o.ID, o.GroupID, o.MemberID, o.CycleNumber, o.Amount, o.DueDate)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for _, o := range obligations {
		if _, err := results.Exec(); err != nil {
			return mapError(err, "obligation", o.ID)
		}
	}
	return nil
}

// GetByID returns an obligation by primary key.
func (r *Repo) GetByID(ctx context.Context, obligationID uuid.UUID) (domain.Obligation, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	o, err := scanObligation(q.QueryRow(ctx, getObligationSQL, obligationID))
	if err != nil {
		return domain.Obligation{}, mapError(err, "obligation", obligationID)
	}
	return o, nil
}

// MaxCycle returns the highest generated cycle number for a group, or 0
// when no cycle has been generated yet.
func (r *Repo) MaxCycle(ctx context.Context, groupID uuid.UUID) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var maxCycle int
	if err := q.QueryRow(ctx, maxCycleSQL, groupID).Scan(&maxCycle); err != nil {
		return 0, mapError(err, "obligation", groupID)
	}
	return maxCycle, nil
}

// CycleExists reports whether any obligation exists for the given cycle.
func (r *Repo) CycleExists(ctx context.Context, groupID uuid.UUID, cycle int) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var exists bool
	if err := q.QueryRow(ctx, cycleExistsSQL, groupID, cycle).Scan(&exists); err != nil {
		return false, mapError(err, "obligation", groupID)
	}
	return exists, nil
}

// StampPenalties sets the penalty on every unpaid, not-yet-penalized
// obligation of one cycle. Returns the number of stamped rows; re-running
// with the same arguments stamps nothing.
func (r *Repo) StampPenalties(ctx context.Context, groupID uuid.UUID, cycle int, penalty decimal.Decimal) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, stampPenaltiesSQL, groupID, cycle, penalty)
	if err != nil {
		return 0, mapError(err, "obligation", groupID)
	}
	return tag.RowsAffected(), nil
}

// StampOverduePenalties stamps all overdue unpaid obligations of a group
// regardless of cycle. Used by the penalty sweep.
func (r *Repo) StampOverduePenalties(ctx context.Context, groupID uuid.UUID, penalty decimal.Decimal, today time.Time) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, stampOverduePenaltiesSQL, groupID, penalty, domain.Date(today))
	if err != nil {
		return 0, mapError(err, "obligation", groupID)
	}
	return tag.RowsAffected(), nil
}

// MarkPaid flips the paid flag. Returns domain.ErrAlreadyPaid if the
// obligation exists but was paid before, domain.ErrNotFound if it does not
// exist.
func (r *Repo) MarkPaid(ctx context.Context, obligationID uuid.UUID, paidAt time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, markPaidSQL, obligationID, paidAt)
	if err != nil {
		return mapError(err, "obligation", obligationID)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already paid; disambiguate.
		if _, err := r.GetByID(ctx, obligationID); err != nil {
			return err
		}
		return fmt.Errorf("obligation %s: %w", obligationID, domain.ErrAlreadyPaid)
	}
	return nil
}

// List returns obligations matching the filter, ordered by cycle then member.
func (r *Repo) List(ctx context.Context, f Filter) ([]domain.Obligation, error) {
	builder := qb.
		Select("id", "group_id", "member_id", "cycle_number", "amount",
			"penalty_amount", "paid", "paid_at", "due_date", "created_at").
		From("obligations").
		OrderBy("cycle_number", "member_id", "id")

	if f.GroupID != nil {
		builder = builder.Where(sq.Eq{"group_id": *f.GroupID})
	}
	if f.MemberID != nil {
		builder = builder.Where(sq.Eq{"member_id": *f.MemberID})
	}
	if f.CycleNumber != nil {
		builder = builder.Where(sq.Eq{"cycle_number": *f.CycleNumber})
	}
	if f.Paid != nil {
		builder = builder.Where(sq.Eq{"paid": *f.Paid})
	}
	if f.Limit > 0 {
		builder = builder.Limit(f.Limit)
	}
	if f.Offset > 0 {
		builder = builder.Offset(f.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list obligations query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []domain.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate obligations: %w", err)
	}

	return obligations, nil
}

// SumCollected returns the total base amount over all paid obligations of a
// group. Penalties are excluded. They punish lateness, they do not grow the
// fund a loan can draw on.
func (r *Repo) SumCollected(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var sum decimal.Decimal
	if err := q.QueryRow(ctx, sumCollectedSQL, groupID).Scan(&sum); err != nil {
		return decimal.Zero, mapError(err, "obligation", groupID)
	}
	return sum, nil
}

// SumCollectedByMember returns one member's total paid base contributions
// within a group, penalties excluded.
func (r *Repo) SumCollectedByMember(ctx context.Context, groupID, memberID uuid.UUID) (decimal.Decimal, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var sum decimal.Decimal
	if err := q.QueryRow(ctx, sumCollectedByMemberSQL, groupID, memberID).Scan(&sum); err != nil {
		return decimal.Zero, mapError(err, "obligation", memberID)
	}
	return sum, nil
}

// CountByCycle returns how many obligations of a cycle are paid and unpaid.
func (r *Repo) CountByCycle(ctx context.Context, groupID uuid.UUID, cycle int) (paid, unpaid int, err error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if err := q.QueryRow(ctx, countByCycleSQL, groupID, cycle).Scan(&paid, &unpaid); err != nil {
		return 0, 0, mapError(err, "obligation", groupID)
	}
	return paid, unpaid, nil
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

func scanObligation(row pgx.Row) (domain.Obligation, error) {
	var o domain.Obligation
	err := row.Scan(
		&o.ID, &o.GroupID, &o.MemberID, &o.CycleNumber, &o.Amount,
		&o.PenaltyAmount, &o.Paid, &o.PaidAt, &o.DueDate, &o.CreatedAt,
	)
	if err != nil {
		return domain.Obligation{}, err
	}
	return o, nil
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
