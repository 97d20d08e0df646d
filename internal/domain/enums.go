package domain

// Cadence is the contribution rhythm of a group. It determines the cycle
// length in days for obligation due dates and installment schedules.
type Cadence string

const (
	CadenceDaily   Cadence = "DAILY"
	CadenceWeekly  Cadence = "WEEKLY"
	CadenceMonthly Cadence = "MONTHLY"
)

func (c Cadence) String() string { return string(c) }

func (c Cadence) IsValid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return true
	}
	return false
}

// Days returns the cycle length in days. Monthly cadence uses a fixed
// 30-day cycle rather than calendar months.
func (c Cadence) Days() int {
	switch c {
	case CadenceDaily:
		return 1
	case CadenceWeekly:
		return 7
	case CadenceMonthly:
		return 30
	}
	return 7
}

// LoanStatus is the lifecycle state of a loan.
// Transitions: PENDING→APPROVED→CLOSED, or PENDING→REJECTED.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusRejected LoanStatus = "REJECTED"
	LoanStatusClosed   LoanStatus = "CLOSED"
)

func (s LoanStatus) String() string { return string(s) }

func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected, LoanStatusClosed:
		return true
	}
	return false
}

// MemberRole is the role a user holds inside a group. Role checks happen
// outside the ledger core; the role is read here only to select which
// memberships receive obligations.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleMember MemberRole = "MEMBER"
)

func (r MemberRole) String() string { return string(r) }

func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleOwner, MemberRoleMember:
		return true
	}
	return false
}

// AuditAction tags a sensitive state transition in the audit log.
type AuditAction string

const (
	AuditActionLoanApproved  AuditAction = "LOAN_APPROVED"
	AuditActionLoanRejected  AuditAction = "LOAN_REJECTED"
	AuditActionGroupClosed   AuditAction = "GROUP_CLOSED"
	AuditActionGroupReopened AuditAction = "GROUP_REOPENED"
)

func (a AuditAction) String() string { return string(a) }

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionLoanApproved, AuditActionLoanRejected, AuditActionGroupClosed, AuditActionGroupReopened:
		return true
	}
	return false
}
