package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus enumerates the derived financial account statuses.
type AccountStatus string

const (
	StatusOnTrack AccountStatus = "onTrack"
	StatusOverdue AccountStatus = "overdue"
	StatusSettled AccountStatus = "settled"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusOnTrack, StatusOverdue, StatusSettled:
		return true
	}
	return false
}

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodCreditCard   PaymentMethod = "Credit Card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCreditCard:
		return true
	}
	return false
}

// DefaultCurrency is used when an account is created without one.
const DefaultCurrency = "SAR"

// FinancialAccount is the tuition ledger for one student. The account ID
// equals the student ID, which enforces at most one account per student.
// StudentName and Grade are snapshots taken at creation time and are not
// kept in sync with the student record.
type FinancialAccount struct {
	ID                 string          `json:"id"`
	StudentID          string          `json:"student_id"`
	StudentName        string          `json:"student_name"`
	Grade              string          `json:"grade"`
	Currency           string          `json:"currency"`
	TotalTuition       decimal.Decimal `json:"total_tuition"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	InstallmentCount   int             `json:"installment_count"`
	PlanStartDate      time.Time       `json:"plan_start_date"`
	NextDueDate        time.Time       `json:"next_due_date"`
	Status             AccountStatus   `json:"status"`
	Notes              string          `json:"notes"`
	LastPaymentAmount  decimal.Decimal `json:"last_payment_amount"`
	LastPaymentDate    *time.Time      `json:"last_payment_date,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Remaining returns the unpaid balance, clamped at zero.
func (a FinancialAccount) Remaining() decimal.Decimal {
	rem := a.TotalTuition.Sub(a.TotalPaid)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// FinancialPayment is an append-only child record of exactly one account.
// Payments are never mutated or deleted; corrections are out of scope.
type FinancialPayment struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	PaymentDate time.Time       `json:"payment_date"`
	Note        string          `json:"note"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AccountPatch carries a partial account update. Nil fields are "not
// supplied" and leave the stored value untouched; this is distinct from a
// supplied zero value.
type AccountPatch struct {
	StudentName        *string          `json:"student_name,omitempty"`
	Grade              *string          `json:"grade,omitempty"`
	Currency           *string          `json:"currency,omitempty"`
	TotalTuition       *decimal.Decimal `json:"total_tuition,omitempty"`
	TotalPaid          *decimal.Decimal `json:"total_paid,omitempty"`
	MonthlyInstallment *decimal.Decimal `json:"monthly_installment,omitempty"`
	InstallmentCount   *int             `json:"installment_count,omitempty"`
	PlanStartDate      *time.Time       `json:"plan_start_date,omitempty"`
	NextDueDate        *time.Time       `json:"next_due_date,omitempty"`
	Status             *AccountStatus   `json:"status,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
}

// TouchesDrivingFields reports whether the patch changes any of the three
// fields the stored status is derived from. When it does, the status is
// recomputed and any explicitly supplied status is ignored.
func (p AccountPatch) TouchesDrivingFields() bool {
	return p.TotalTuition != nil || p.TotalPaid != nil || p.NextDueDate != nil
}

// Empty reports whether the patch carries no fields at all.
func (p AccountPatch) Empty() bool {
	return p.StudentName == nil && p.Grade == nil && p.Currency == nil &&
		p.TotalTuition == nil && p.TotalPaid == nil && p.MonthlyInstallment == nil &&
		p.InstallmentCount == nil && p.PlanStartDate == nil && p.NextDueDate == nil &&
		p.Status == nil && p.Notes == nil
}

// DeriveStatus computes the account status from its three driving fields.
// Fully paid wins over everything: an account with totalPaid >= totalTuition
// is settled even when its next due date is in the past.
func DeriveStatus(totalTuition, totalPaid decimal.Decimal, nextDueDate, now time.Time) AccountStatus {
	if totalPaid.GreaterThanOrEqual(totalTuition) {
		return StatusSettled
	}
	if nextDueDate.Before(now) {
		return StatusOverdue
	}
	return StatusOnTrack
}

// AddCalendarMonth advances t by exactly one calendar month, clamping the
// day-of-month to the target month's length (Jan 31 -> Feb 28/29 rather
// than Mar 2/3).
func AddCalendarMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddCalendarMonths applies AddCalendarMonth n times.
func AddCalendarMonths(t time.Time, n int) time.Time {
	for i := 0; i < n; i++ {
		t = AddCalendarMonth(t)
	}
	return t
}

// MonthStart truncates t to the first instant of its calendar month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month is this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DefaultInstallmentCount derives the installment count from tuition and the
// monthly installment: ceil(totalTuition / monthlyInstallment), at least 1.
func DefaultInstallmentCount(totalTuition, monthlyInstallment decimal.Decimal) int {
	if monthlyInstallment.IsZero() || monthlyInstallment.IsNegative() {
		return 1
	}
	count := int(totalTuition.Div(monthlyInstallment).Ceil().IntPart())
	if count < 1 {
		count = 1
	}
	return count
}
