package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyReportRow aggregates expected and collected amounts for one
// calendar month.
type MonthlyReportRow struct {
	Month       string          `json:"month"` // "2006-01"
	TotalDue    decimal.Decimal `json:"total_due"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Summary is the cross-account roll-up shown on the accountant dashboard.
type Summary struct {
	TotalTuition   decimal.Decimal `json:"total_tuition"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	OverdueCount   int             `json:"overdue_count"`
	CollectionRate decimal.Decimal `json:"collection_rate"`
}

const monthKeyLayout = "2006-01"

// BuildMonthlyReport computes the per-month due/paid/outstanding table from
// the full in-memory set of accounts and payments. The reported months are
// the current month plus every month touched by a plan start, a next due
// date, or a payment, in chronological order.
//
// An account contributes its monthly installment to every month inside its
// plan window: [monthOf(planStartDate), monthOf(planStartDate) +
// installmentCount - 1 months].
func BuildMonthlyReport(accounts []FinancialAccount, payments []FinancialPayment, now time.Time) []MonthlyReportRow {
	months := map[string]time.Time{}
	add := func(t time.Time) {
		start := MonthStart(t)
		months[start.Format(monthKeyLayout)] = start
	}

	add(now)
	for _, a := range accounts {
		add(a.PlanStartDate)
		add(a.NextDueDate)
	}
	paidByMonth := map[string]decimal.Decimal{}
	for _, p := range payments {
		add(p.PaymentDate)
		key := MonthStart(p.PaymentDate).Format(monthKeyLayout)
		paidByMonth[key] = paidByMonth[key].Add(p.Amount)
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]MonthlyReportRow, 0, len(keys))
	for _, key := range keys {
		month := months[key]

		totalDue := decimal.Zero
		for _, a := range accounts {
			start := MonthStart(a.PlanStartDate)
			end := AddCalendarMonths(start, a.InstallmentCount-1)
			if !month.Before(start) && !month.After(end) {
				totalDue = totalDue.Add(a.MonthlyInstallment)
			}
		}

		totalPaid := paidByMonth[key]
		outstanding := totalDue.Sub(totalPaid)
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}

		rows = append(rows, MonthlyReportRow{
			Month:       key,
			TotalDue:    totalDue,
			TotalPaid:   totalPaid,
			Outstanding: outstanding,
		})
	}
	return rows
}

// Summarize rolls up all accounts into dashboard totals. CollectionRate is a
// percentage, zero when no tuition is contracted.
func Summarize(accounts []FinancialAccount) Summary {
	var s Summary
	for _, a := range accounts {
		s.TotalTuition = s.TotalTuition.Add(a.TotalTuition)
		s.TotalPaid = s.TotalPaid.Add(a.TotalPaid)
		s.TotalRemaining = s.TotalRemaining.Add(a.Remaining())
		if a.Status == StatusOverdue {
			s.OverdueCount++
		}
	}
	if s.TotalTuition.IsPositive() {
		s.CollectionRate = s.TotalPaid.Div(s.TotalTuition).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return s
}
