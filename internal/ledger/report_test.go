package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBuildMonthlyReportWindows(t *testing.T) {
	now := date(2024, time.March, 10)
	accounts := []FinancialAccount{
		{
			ID:                 "s1",
			TotalTuition:       d("4500"),
			MonthlyInstallment: d("1500"),
			InstallmentCount:   3,
			PlanStartDate:      date(2024, time.January, 15),
			NextDueDate:        date(2024, time.April, 15),
		},
	}
	payments := []FinancialPayment{
		{AccountID: "s1", Amount: d("1500"), PaymentDate: date(2024, time.January, 20)},
		{AccountID: "s1", Amount: d("700"), PaymentDate: date(2024, time.February, 2)},
	}

	rows := BuildMonthlyReport(accounts, payments, now)

	// Months: Jan/Feb (payments + plan), Mar (current + plan window end),
	// Apr (next due). Chronological.
	require.Len(t, rows, 4)
	require.Equal(t, "2024-01", rows[0].Month)
	require.Equal(t, "2024-02", rows[1].Month)
	require.Equal(t, "2024-03", rows[2].Month)
	require.Equal(t, "2024-04", rows[3].Month)

	// Plan window is Jan..Mar: three months of installments due.
	require.True(t, rows[0].TotalDue.Equal(d("1500")))
	require.True(t, rows[1].TotalDue.Equal(d("1500")))
	require.True(t, rows[2].TotalDue.Equal(d("1500")))
	require.True(t, rows[3].TotalDue.IsZero())

	require.True(t, rows[0].TotalPaid.Equal(d("1500")))
	require.True(t, rows[1].TotalPaid.Equal(d("700")))

	require.True(t, rows[0].Outstanding.IsZero())
	require.True(t, rows[1].Outstanding.Equal(d("800")))
	require.True(t, rows[2].Outstanding.Equal(d("1500")))
}

func TestBuildMonthlyReportConservation(t *testing.T) {
	// Total due across an account's active window equals
	// monthlyInstallment * installmentCount.
	now := date(2024, time.December, 1)
	acct := FinancialAccount{
		ID:                 "s1",
		TotalTuition:       d("18000"),
		MonthlyInstallment: d("1500"),
		InstallmentCount:   12,
		PlanStartDate:      date(2024, time.January, 1),
		NextDueDate:        date(2024, time.December, 1),
	}

	// Payments in every window month force every bucket to be reported.
	var payments []FinancialPayment
	for i := 0; i < 12; i++ {
		payments = append(payments, FinancialPayment{
			AccountID:   "s1",
			Amount:      d("1"),
			PaymentDate: AddCalendarMonths(date(2024, time.January, 5), i),
		})
	}

	rows := BuildMonthlyReport([]FinancialAccount{acct}, payments, now)

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.TotalDue)
	}
	require.True(t, total.Equal(d("18000")), "sum of due across window = installment * count, got %s", total)
}

func TestBuildMonthlyReportOutstandingClamped(t *testing.T) {
	now := date(2024, time.May, 1)
	accounts := []FinancialAccount{{
		ID:                 "s1",
		TotalTuition:       d("1000"),
		MonthlyInstallment: d("500"),
		InstallmentCount:   2,
		PlanStartDate:      date(2024, time.May, 1),
		NextDueDate:        date(2024, time.June, 1),
	}}
	payments := []FinancialPayment{
		{AccountID: "s1", Amount: d("900"), PaymentDate: date(2024, time.May, 2)},
	}

	rows := BuildMonthlyReport(accounts, payments, now)
	require.Len(t, rows, 2)
	require.Equal(t, "2024-05", rows[0].Month)
	require.True(t, rows[0].Outstanding.IsZero(), "overpaid month clamps to zero")
	require.True(t, rows[1].Outstanding.Equal(d("500")), "overpayment does not roll into later months")
}

func TestBuildMonthlyReportEmpty(t *testing.T) {
	rows := BuildMonthlyReport(nil, nil, date(2024, time.July, 4))
	require.Len(t, rows, 1)
	require.Equal(t, "2024-07", rows[0].Month)
	require.True(t, rows[0].TotalDue.IsZero())
}

func TestSummarize(t *testing.T) {
	accounts := []FinancialAccount{
		{TotalTuition: d("10000"), TotalPaid: d("4000"), Status: StatusOnTrack},
		{TotalTuition: d("8000"), TotalPaid: d("1000"), Status: StatusOverdue},
		{TotalTuition: d("2000"), TotalPaid: d("2500"), Status: StatusSettled},
	}

	s := Summarize(accounts)
	require.True(t, s.TotalTuition.Equal(d("20000")))
	require.True(t, s.TotalPaid.Equal(d("7500")))
	// Overpaid account contributes zero remaining, not negative.
	require.True(t, s.TotalRemaining.Equal(d("13000")))
	require.Equal(t, 1, s.OverdueCount)
	require.True(t, s.CollectionRate.Equal(d("37.5")))
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	require.True(t, s.CollectionRate.IsZero())
	require.Equal(t, 0, s.OverdueCount)
}
