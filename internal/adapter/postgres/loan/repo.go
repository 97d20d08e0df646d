// Package loan implements the Loan and Installment repository using
// PostgreSQL. A loan is created PENDING with zeroed terms; approval writes
// the terms and the repayment schedule in one transaction. The partial
// unique index on (group_id, member_id) WHERE active backs the one active
// loan per member rule at the storage level.
package loan

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
	GroupID  *uuid.UUID
	MemberID *uuid.UUID
	Status   *domain.LoanStatus
	Active   *bool
	Limit    uint64
	Offset   uint64
}

// Repo provides loan and installment persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new loan repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const loanColumns = `id, group_id, member_id, principal, interest_rate,
       total_payable, total_cycles, remaining_amount, status, active,
       approved_by, approved_at, created_at`

const installmentColumns = `id, loan_id, cycle_number, emi_amount,
       penalty_amount, due_date, paid, paid_at, created_at`

const createLoanSQL = `
INSERT INTO loans (id, group_id, member_id, principal, interest_rate,
                   total_payable, total_cycles, remaining_amount, status,
                   active, created_at)
VALUES ($1, $2, $3, $4, 0, 0, 0, 0, 'PENDING', FALSE, now())
RETURNING ` + loanColumns

const getLoanSQL = `
SELECT ` + loanColumns + `
FROM loans
WHERE id = $1`

const hasActiveLoanSQL = `
SELECT EXISTS(SELECT 1 FROM loans WHERE group_id = $1 AND member_id = $2 AND active)`

const approveLoanSQL = `
UPDATE loans
SET interest_rate    = $2,
    total_payable    = $3,
    total_cycles     = $4,
    remaining_amount = $5,
    status           = 'APPROVED',
    active           = TRUE,
    approved_by      = $6,
    approved_at      = $7
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + loanColumns

const rejectLoanSQL = `
UPDATE loans
SET status = 'REJECTED', approved_by = $2, approved_at = $3
WHERE id = $1 AND status = 'PENDING'`

const updateRepaymentSQL = `
UPDATE loans
SET remaining_amount = $2, status = $3, active = $4
WHERE id = $1`

const createInstallmentSQL = `
INSERT INTO loan_installments (id, loan_id, cycle_number, emi_amount,
                               penalty_amount, due_date, paid, created_at)
VALUES ($1, $2, $3, $4, 0, $5, FALSE, now())`

const getInstallmentSQL = `
SELECT ` + installmentColumns + `
FROM loan_installments
WHERE id = $1`

const listInstallmentsSQL = `
SELECT ` + installmentColumns + `
FROM loan_installments
WHERE loan_id = $1
ORDER BY cycle_number`

const markInstallmentPaidSQL = `
UPDATE loan_installments
SET paid = TRUE, paid_at = $2
WHERE id = $1 AND NOT paid`

// Same idempotency guard as obligation penalties: only unpaid, overdue,
// not-yet-penalized installments of active loans are stamped.
const stampInstallmentPenaltiesSQL = `
UPDATE loan_installments li
SET penalty_amount = $2
FROM loans l
WHERE li.loan_id = l.id
  AND l.group_id = $1
  AND l.active
  AND NOT li.paid
  AND li.penalty_amount = 0
  AND li.due_date < $3`

const sumPrincipalDisbursedSQL = `
SELECT COALESCE(SUM(principal), 0)
FROM loans
WHERE group_id = $1 AND status IN ('APPROVED', 'CLOSED')`

const sumRepaidSQL = `
SELECT COALESCE(SUM(li.emi_amount + li.penalty_amount), 0)
FROM loan_installments li
JOIN loans l ON li.loan_id = l.id
WHERE l.group_id = $1 AND li.paid`

const sumRepaidByMemberSQL = `
SELECT COALESCE(SUM(li.emi_amount + li.penalty_amount), 0)
FROM loan_installments li
JOIN loans l ON li.loan_id = l.id
WHERE l.group_id = $1 AND l.member_id = $2 AND li.paid`

const sumOutstandingSQL = `
SELECT COALESCE(SUM(remaining_amount), 0)
FROM loans
WHERE group_id = $1 AND active`

// ---------------------------------------------------------------------------
// Loan operations
// ---------------------------------------------------------------------------

// Create inserts a PENDING loan request with zeroed terms.
func (r *Repo) Create(ctx context.Context, loan domain.Loan) (domain.Loan, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, createLoanSQL, loan.ID, loan.GroupID, loan.MemberID, loan.Principal)
	persisted, err := scanLoan(row)
	if err != nil {
		return domain.Loan{}, mapError(err, "loan", loan.ID)
	}
	return persisted, nil
}

// GetByID returns a loan by primary key.
func (r *Repo) GetByID(ctx context.Context, loanID uuid.UUID) (domain.Loan, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	l, err := scanLoan(q.QueryRow(ctx, getLoanSQL, loanID))
	if err != nil {
		return domain.Loan{}, mapError(err, "loan", loanID)
	}
	return l, nil
}

// HasActiveLoan reports whether the member already has an active loan in
// the group.
func (r *Repo) HasActiveLoan(ctx context.Context, groupID, memberID uuid.UUID) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var exists bool
	if err := q.QueryRow(ctx, hasActiveLoanSQL, groupID, memberID).Scan(&exists); err != nil {
		return false, mapError(err, "loan", memberID)
	}
	return exists, nil
}

// Approve writes the computed terms and activates the loan. Returns
// domain.ErrLoanNotPending when the loan exists but left PENDING already,
// domain.ErrNotFound when it does not exist.
func (r *Repo) Approve(ctx context.Context, loan domain.Loan) (domain.Loan, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, approveLoanSQL,
		loan.ID, loan.InterestRate, loan.TotalPayable, loan.TotalCycles,
		loan.RemainingAmount, loan.ApprovedBy, loan.ApprovedAt,
	)
	persisted, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, loan.ID); getErr != nil {
				return domain.Loan{}, getErr
			}
			return domain.Loan{}, fmt.Errorf("loan %s: %w", loan.ID, domain.ErrLoanNotPending)
		}
		return domain.Loan{}, mapError(err, "loan", loan.ID)
	}
	return persisted, nil
}

// Reject marks a PENDING loan as rejected. Same not-pending semantics as
// Approve.
func (r *Repo) Reject(ctx context.Context, loanID, rejectedBy uuid.UUID, at time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, rejectLoanSQL, loanID, rejectedBy, at)
	if err != nil {
		return mapError(err, "loan", loanID)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, loanID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("loan %s: %w", loanID, domain.ErrLoanNotPending)
	}
	return nil
}

// UpdateRepayment persists the remaining balance and status after a payment.
func (r *Repo) UpdateRepayment(ctx context.Context, loan domain.Loan) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, updateRepaymentSQL,
		loan.ID, loan.RemainingAmount, loan.Status, loan.Active)
	if err != nil {
		return mapError(err, "loan", loan.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("loan %s: %w", loan.ID, domain.ErrNotFound)
	}
	return nil
}

// List returns loans matching the filter, newest first.
func (r *Repo) List(ctx context.Context, f Filter) ([]domain.Loan, error) {
	builder := qb.
		Select("id", "group_id", "member_id", "principal", "interest_rate",
			"total_payable", "total_cycles", "remaining_amount", "status",
			"active", "approved_by", "approved_at", "created_at").
		From("loans").
		OrderBy("created_at DESC", "id")

	if f.GroupID != nil {
		builder = builder.Where(sq.Eq{"group_id": *f.GroupID})
	}
	if f.MemberID != nil {
		builder = builder.Where(sq.Eq{"member_id": *f.MemberID})
	}
	if f.Status != nil {
		builder = builder.Where(sq.Eq{"status": *f.Status})
	}
	if f.Active != nil {
		builder = builder.Where(sq.Eq{"active": *f.Active})
	}
	if f.Limit > 0 {
		builder = builder.Limit(f.Limit)
	}
	if f.Offset > 0 {
		builder = builder.Offset(f.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list loans query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}

	return loans, nil
}

// ---------------------------------------------------------------------------
// Installment operations
// ---------------------------------------------------------------------------

// CreateInstallments inserts a loan's full repayment schedule in one round
// trip.
func (r *Repo) CreateInstallments(ctx context.Context, installments []domain.Installment) error {
	if len(installments) == 0 {
		return nil
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	batch := &pgx.Batch{}
	for _, inst := range installments {
		batch.Queue(createInstallmentSQL,
			inst.ID, inst.LoanID, inst.CycleNumber, inst.EMIAmount, inst.DueDate)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for _, inst := range installments {
		if _, err := results.Exec(); err != nil {
			return mapError(err, "loan_installment", inst.ID)
		}
	}
	return nil
}

// GetInstallment returns an installment by primary key.
func (r *Repo) GetInstallment(ctx context.Context, installmentID uuid.UUID) (domain.Installment, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	inst, err := scanInstallment(q.QueryRow(ctx, getInstallmentSQL, installmentID))
	if err != nil {
		return domain.Installment{}, mapError(err, "loan_installment", installmentID)
	}
	return inst, nil
}

// ListInstallments returns a loan's schedule ordered by cycle number.
func (r *Repo) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, listInstallmentsSQL, loanID)
	if err != nil {
		return nil, fmt.Errorf("list installments for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	var installments []domain.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}

	return installments, nil
}

// MarkInstallmentPaid flips the paid flag. Returns domain.ErrAlreadyPaid
// if the installment exists but was paid before.
func (r *Repo) MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, paidAt time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, markInstallmentPaidSQL, installmentID, paidAt)
	if err != nil {
		return mapError(err, "loan_installment", installmentID)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetInstallment(ctx, installmentID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("loan_installment %s: %w", installmentID, domain.ErrAlreadyPaid)
	}
	return nil
}

// StampInstallmentPenalties stamps all overdue unpaid installments of a
// group's active loans. Returns the number of stamped rows.
func (r *Repo) StampInstallmentPenalties(ctx context.Context, groupID uuid.UUID, penalty decimal.Decimal, today time.Time) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, stampInstallmentPenaltiesSQL, groupID, penalty, domain.Date(today))
	if err != nil {
		return 0, mapError(err, "loan_installment", groupID)
	}
	return tag.RowsAffected(), nil
}

// ---------------------------------------------------------------------------
// Fund aggregates
// ---------------------------------------------------------------------------

// SumPrincipalDisbursed returns the total principal handed out, counting
// approved and already closed loans.
func (r *Repo) SumPrincipalDisbursed(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	return r.sumQuery(ctx, sumPrincipalDisbursedSQL, groupID)
}

// SumRepaid returns the total of EMI plus penalty over all paid
// installments of a group's loans.
func (r *Repo) SumRepaid(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	return r.sumQuery(ctx, sumRepaidSQL, groupID)
}

// SumRepaidByMember returns one member's total loan repayments in a group.
func (r *Repo) SumRepaidByMember(ctx context.Context, groupID, memberID uuid.UUID) (decimal.Decimal, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var sum decimal.Decimal
	if err := q.QueryRow(ctx, sumRepaidByMemberSQL, groupID, memberID).Scan(&sum); err != nil {
		return decimal.Zero, mapError(err, "loan", memberID)
	}
	return sum, nil
}

// SumOutstanding returns the total remaining balance of active loans.
func (r *Repo) SumOutstanding(ctx context.Context, groupID uuid.UUID) (decimal.Decimal, error) {
	return r.sumQuery(ctx, sumOutstandingSQL, groupID)
}

func (r *Repo) sumQuery(ctx context.Context, query string, groupID uuid.UUID) (decimal.Decimal, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var sum decimal.Decimal
	if err := q.QueryRow(ctx, query, groupID).Scan(&sum); err != nil {
		return decimal.Zero, mapError(err, "loan", groupID)
	}
	return sum, nil
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

func scanLoan(row pgx.Row) (domain.Loan, error) {
	var l domain.Loan
	err := row.Scan(
		&l.ID, &l.GroupID, &l.MemberID, &l.Principal, &l.InterestRate,
		&l.TotalPayable, &l.TotalCycles, &l.RemainingAmount, &l.Status,
		&l.Active, &l.ApprovedBy, &l.ApprovedAt, &l.CreatedAt,
	)
	if err != nil {
		return domain.Loan{}, err
	}
	return l, nil
}

func scanInstallment(row pgx.Row) (domain.Installment, error) {
	var inst domain.Installment
	err := row.Scan(
		&inst.ID, &inst.LoanID, &inst.CycleNumber, &inst.EMIAmount,
		&inst.PenaltyAmount, &inst.DueDate, &inst.Paid, &inst.PaidAt,
		&inst.CreatedAt,
	)
	if err != nil {
		return domain.Installment{}, err
	}
	return inst, nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

// mapError converts pgx/pgconn errors into domain errors. A unique
// violation on the one-active-loan partial index surfaces as
// domain.ErrActiveLoanExists; other unique violations as ErrConflict.
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
			if pgErr.ConstraintName == "loans_one_active_per_member_uniq" {
				return fmt.Errorf("%s %s: %w", entity, id, domain.ErrActiveLoanExists)
			}
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
