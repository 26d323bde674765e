package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestDeriveStatus(t *testing.T) {
	now := date(2024, time.June, 15)

	cases := []struct {
		name    string
		tuition string
		paid    string
		nextDue time.Time
		want    AccountStatus
	}{
		{"unpaid with future due date", "1000", "0", date(2024, time.July, 1), StatusOnTrack},
		{"unpaid with past due date", "1000", "0", date(2024, time.June, 14), StatusOverdue},
		{"partially paid overdue", "1000", "400", date(2024, time.January, 31), StatusOverdue},
		{"exactly paid", "1000", "1000", date(2024, time.July, 1), StatusSettled},
		{"exactly paid with past due date", "1000", "1000", date(2020, time.January, 1), StatusSettled},
		{"overpaid", "1000", "1200", date(2020, time.January, 1), StatusSettled},
		{"due today is not overdue", "1000", "0", now, StatusOnTrack},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(d(tc.tuition), d(tc.paid), tc.nextDue, now)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAddCalendarMonth(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid month", date(2024, time.March, 15), date(2024, time.April, 15)},
		{"jan 31 clamps to leap feb", date(2024, time.January, 31), date(2024, time.February, 29)},
		{"jan 31 clamps to non-leap feb", date(2023, time.January, 31), date(2023, time.February, 28)},
		{"may 31 clamps to june 30", date(2024, time.May, 31), date(2024, time.June, 30)},
		{"december rolls into next year", date(2024, time.December, 10), date(2025, time.January, 10)},
		{"feb 29 maps to march 29", date(2024, time.February, 29), date(2024, time.March, 29)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, AddCalendarMonth(tc.in))
		})
	}
}

func TestAddCalendarMonths(t *testing.T) {
	// Stepping month by month keeps clamping at each boundary.
	require.Equal(t, date(2024, time.March, 29), AddCalendarMonths(date(2024, time.January, 31), 2))
	require.Equal(t, date(2024, time.January, 31), AddCalendarMonths(date(2024, time.January, 31), 0))
}

func TestDefaultInstallmentCount(t *testing.T) {
	require.Equal(t, 12, DefaultInstallmentCount(d("18000"), d("1500")))
	require.Equal(t, 12, DefaultInstallmentCount(d("17999"), d("1500")))
	require.Equal(t, 13, DefaultInstallmentCount(d("18001"), d("1500")))
	require.Equal(t, 1, DefaultInstallmentCount(d("500"), d("1500")))
	require.Equal(t, 1, DefaultInstallmentCount(d("1000"), decimal.Zero))
}

func TestAccountPatchTouchesDrivingFields(t *testing.T) {
	tuition := d("9000")
	notes := "updated"
	status := StatusOverdue

	require.True(t, AccountPatch{TotalTuition: &tuition}.TouchesDrivingFields())
	require.False(t, AccountPatch{Notes: &notes, Status: &status}.TouchesDrivingFields())
	require.True(t, AccountPatch{Notes: &notes}.Empty() == false)
	require.True(t, AccountPatch{}.Empty())
}

func TestRemainingClampsAtZero(t *testing.T) {
	acct := FinancialAccount{TotalTuition: d("1000"), TotalPaid: d("1250")}
	require.True(t, acct.Remaining().IsZero())

	acct.TotalPaid = d("250")
	require.True(t, acct.Remaining().Equal(d("750")))
}
