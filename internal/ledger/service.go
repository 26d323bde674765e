package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/currency"

	"github.com/madaris-app/madaris/internal/observability"
	"github.com/madaris-app/madaris/internal/shared"
)

// RepositoryPort defines data access methods for the ledger.
type RepositoryPort interface {
	UpsertAccount(ctx context.Context, acct *FinancialAccount) error
	GetAccount(ctx context.Context, id string) (*FinancialAccount, error)
	ListAccounts(ctx context.Context) ([]FinancialAccount, error)
	MutateAccount(ctx context.Context, id string, fn func(*FinancialAccount) error) (*FinancialAccount, error)
	RecordPayment(ctx context.Context, accountID string, fn func(*FinancialAccount) (*FinancialPayment, error)) (*FinancialPayment, error)
	ListPayments(ctx context.Context, accountID string) ([]FinancialPayment, error)
	ListAllPayments(ctx context.Context) ([]FinancialPayment, error)
	ListPaymentsInRange(ctx context.Context, from, to time.Time) ([]FinancialPayment, error)
}

// StudentDirectory resolves a student's current name and grade. Accounts
// snapshot both at creation and keep the copy even if the student record
// changes later.
type StudentDirectory interface {
	Snapshot(ctx context.Context, studentID string) (name, grade string, err error)
}

// Service owns the tuition ledger: account creation and partial updates, the
// payment-recording transaction, payment retrieval, and the derived report
// and summary computations.
type Service struct {
	repo         RepositoryPort
	feed         *Feed
	cache        *ReportCache
	metrics      *observability.Metrics
	students     StudentDirectory
	logger       *slog.Logger
	now          func() time.Time
	currencyCode string
}

// NewService builds a Service. feed, cache and metrics may be nil, which
// disables fan-out, caching and counters respectively.
func NewService(repo RepositoryPort, feed *Feed, cache *ReportCache, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		feed:         feed,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
		currencyCode: DefaultCurrency,
	}
}

// WithDefaultCurrency sets the currency assigned to accounts created
// without one.
func (s *Service) WithDefaultCurrency(code string) *Service {
	if code != "" {
		s.currencyCode = code
	}
	return s
}

// WithClock overrides the service clock, and the report cache's with it.
// Tests use this to pin "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	if s.cache != nil {
		s.cache.WithClock(now)
	}
	return s
}

// WithStudentDirectory attaches a directory for name/grade snapshots at
// account creation.
func (s *Service) WithStudentDirectory(dir StudentDirectory) *Service {
	s.students = dir
	return s
}

// CreateAccountInput collects the values needed to open a tuition account.
type CreateAccountInput struct {
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
	Notes              string          `json:"notes"`
}

// CreateAccount opens (or merges over) the student's tuition account. The
// account ID is the student ID. An omitted installment count defaults to
// ceil(totalTuition / monthlyInstallment), at least 1; an omitted next due
// date defaults to the plan start date.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*FinancialAccount, error) {
	ve := &shared.ValidationError{}
	if input.StudentID == "" {
		ve.Add("student_id", "required")
	}
	if !input.TotalTuition.IsPositive() {
		ve.Add("total_tuition", "must be positive")
	}
	if !input.MonthlyInstallment.IsPositive() {
		ve.Add("monthly_installment", "must be positive")
	}
	if input.InstallmentCount < 0 {
		ve.Add("installment_count", "must be positive when supplied")
	}
	if input.TotalPaid.IsNegative() {
		ve.Add("total_paid", "must not be negative")
	}
	if input.PlanStartDate.IsZero() {
		ve.Add("plan_start_date", "required")
	}
	if input.Currency != "" {
		if _, err := currency.ParseISO(input.Currency); err != nil {
			ve.Add("currency", "unknown ISO 4217 code")
		}
	}
	if !ve.Empty() {
		return nil, ve
	}

	if s.students != nil && (input.StudentName == "" || input.Grade == "") {
		name, grade, err := s.students.Snapshot(ctx, input.StudentID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			if input.StudentName == "" {
				input.StudentName = name
			}
			if input.Grade == "" {
				input.Grade = grade
			}
		}
	}

	code := input.Currency
	if code == "" {
		code = s.currencyCode
	}
	nextDue := input.NextDueDate
	if nextDue.IsZero() {
		nextDue = input.PlanStartDate
	}
	count := input.InstallmentCount
	if count == 0 {
		count = DefaultInstallmentCount(input.TotalTuition, input.MonthlyInstallment)
	}

	acct := &FinancialAccount{
		ID:                 input.StudentID,
		StudentID:          input.StudentID,
		StudentName:        input.StudentName,
		Grade:              input.Grade,
		Currency:           code,
		TotalTuition:       input.TotalTuition,
		TotalPaid:          input.TotalPaid,
		MonthlyInstallment: input.MonthlyInstallment,
		InstallmentCount:   count,
		PlanStartDate:      input.PlanStartDate,
		NextDueDate:        nextDue,
		Status:             DeriveStatus(input.TotalTuition, input.TotalPaid, nextDue, s.now()),
		Notes:              input.Notes,
	}

	if err := s.repo.UpsertAccount(ctx, acct); err != nil {
		return nil, err
	}
	s.feed.AccountChanged(ctx, acct.ID)
	s.bumpReport(ctx)
	return acct, nil
}

// GetAccount fetches one account by ID.
func (s *Service) GetAccount(ctx context.Context, id string) (*FinancialAccount, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	return s.repo.GetAccount(ctx, id)
}

// ListAccounts returns all accounts, newest first.
func (s *Service) ListAccounts(ctx context.Context) ([]FinancialAccount, error) {
	return s.repo.ListAccounts(ctx)
}

// UpdateAccount applies a partial update. Untouched fields keep their stored
// values. When the patch touches totalTuition, totalPaid or nextDueDate, the
// status is recomputed from the merged view and overrides any status supplied
// in the same call; a status override alone is honoured as-is.
func (s *Service) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*FinancialAccount, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "required")
	}
	if patch.Empty() {
		return nil, shared.NewValidationError("patch", "no fields supplied")
	}
	ve := &shared.ValidationError{}
	if patch.TotalTuition != nil && !patch.TotalTuition.IsPositive() {
		ve.Add("total_tuition", "must be positive")
	}
	if patch.TotalPaid != nil && patch.TotalPaid.IsNegative() {
		ve.Add("total_paid", "must not be negative")
	}
	if patch.MonthlyInstallment != nil && !patch.MonthlyInstallment.IsPositive() {
		ve.Add("monthly_installment", "must be positive")
	}
	if patch.InstallmentCount != nil && *patch.InstallmentCount <= 0 {
		ve.Add("installment_count", "must be positive")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		ve.Add("status", "unknown status")
	}
	if patch.Currency != nil && *patch.Currency != "" {
		if _, err := currency.ParseISO(*patch.Currency); err != nil {
			ve.Add("currency", "unknown ISO 4217 code")
		}
	}
	if !ve.Empty() {
		return nil, ve
	}

	acct, err := s.repo.MutateAccount(ctx, id, func(acct *FinancialAccount) error {
		applyPatch(acct, patch)
		if patch.TouchesDrivingFields() {
			acct.Status = DeriveStatus(acct.TotalTuition, acct.TotalPaid, acct.NextDueDate, s.now())
		} else if patch.Status != nil {
			acct.Status = *patch.Status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.feed.AccountChanged(ctx, id)
	s.bumpReport(ctx)
	return acct, nil
}

func applyPatch(acct *FinancialAccount, patch AccountPatch) {
	if patch.StudentName != nil {
		acct.StudentName = *patch.StudentName
	}
	if patch.Grade != nil {
		acct.Grade = *patch.Grade
	}
	if patch.Currency != nil {
		acct.Currency = *patch.Currency
	}
	if patch.TotalTuition != nil {
		acct.TotalTuition = *patch.TotalTuition
	}
	if patch.TotalPaid != nil {
		acct.TotalPaid = *patch.TotalPaid
	}
	if patch.MonthlyInstallment != nil {
		acct.MonthlyInstallment = *patch.MonthlyInstallment
	}
	if patch.InstallmentCount != nil {
		acct.InstallmentCount = *patch.InstallmentCount
	}
	if patch.PlanStartDate != nil {
		acct.PlanStartDate = *patch.PlanStartDate
	}
	if patch.NextDueDate != nil {
		acct.NextDueDate = *patch.NextDueDate
	}
	if patch.Notes != nil {
		acct.Notes = *patch.Notes
	}
}

// RecordPaymentInput collects the values for one recorded payment.
type RecordPaymentInput struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	PaymentDate time.Time       `json:"payment_date"`
	Note        string          `json:"note"`
	CreatedBy   string          `json:"created_by"`
}

// RecordPayment appends a payment and rolls it up into the account in one
// atomic transaction: totalPaid grows by the amount, nextDueDate advances by
// one calendar month unless the account becomes settled, the status is
// re-derived, and lastPaymentAmount/lastPaymentDate are refreshed. An
// account whose monthly installment was never configured adopts this
// payment's amount as the expected installment.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*FinancialPayment, error) {
	ve := &shared.ValidationError{}
	if input.AccountID == "" {
		ve.Add("account_id", "required")
	}
	if !input.Amount.IsPositive() {
		ve.Add("amount", "must be positive")
	}
	if !input.Method.Valid() {
		ve.Add("method", "unknown payment method")
	}
	if !ve.Empty() {
		return nil, ve
	}
	if input.PaymentDate.IsZero() {
		input.PaymentDate = s.now()
	}

	payment, err := s.repo.RecordPayment(ctx, input.AccountID, func(acct *FinancialAccount) (*FinancialPayment, error) {
		newTotalPaid := acct.TotalPaid.Add(input.Amount)

		updatedNextDue := acct.NextDueDate
		if newTotalPaid.LessThan(acct.TotalTuition) {
			updatedNextDue = AddCalendarMonth(acct.NextDueDate)
		}

		acct.TotalPaid = newTotalPaid
		acct.NextDueDate = updatedNextDue
		acct.Status = DeriveStatus(acct.TotalTuition, newTotalPaid, updatedNextDue, s.now())
		acct.LastPaymentAmount = input.Amount
		paymentDate := input.PaymentDate
		acct.LastPaymentDate = &paymentDate
		if acct.MonthlyInstallment.IsZero() {
			// First payment on an unconfigured plan establishes the
			// expected recurring amount.
			acct.MonthlyInstallment = input.Amount
		}

		return &FinancialPayment{
			Amount:      input.Amount,
			Method:      input.Method,
			PaymentDate: input.PaymentDate,
			Note:        input.Note,
			CreatedBy:   input.CreatedBy,
		}, nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			s.metrics.PaymentConflict()
		}
		return nil, err
	}

	s.metrics.PaymentRecorded()
	s.feed.PaymentRecorded(ctx, input.AccountID)
	s.bumpReport(ctx)
	return payment, nil
}

// ListPayments returns an account's payments, payment date descending.
func (s *Service) ListPayments(ctx context.Context, accountID string) ([]FinancialPayment, error) {
	if accountID == "" {
		return nil, shared.NewValidationError("account_id", "required")
	}
	return s.repo.ListPayments(ctx, accountID)
}

// ListAllPayments returns payments across every account, payment date
// descending, each tagged with its owning account ID.
func (s *Service) ListAllPayments(ctx context.Context) ([]FinancialPayment, error) {
	return s.repo.ListAllPayments(ctx)
}

// PaymentsInMonth returns payments whose payment date falls inside the given
// calendar month, ascending.
func (s *Service) PaymentsInMonth(ctx context.Context, year int, month time.Month) ([]FinancialPayment, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.repo.ListPaymentsInRange(ctx, from, AddCalendarMonth(from))
}

// MonthlyReport computes (or serves from cache) the per-month due/paid
// aggregation over the whole ledger.
func (s *Service) MonthlyReport(ctx context.Context) ([]MonthlyReportRow, error) {
	return s.cache.Fetch(ctx, func(ctx context.Context) ([]MonthlyReportRow, error) {
		var (
			accounts []FinancialAccount
			payments []FinancialPayment
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			accounts, err = s.repo.ListAccounts(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			payments, err = s.repo.ListAllPayments(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return BuildMonthlyReport(accounts, payments, s.now()), nil
	})
}

// Summary rolls all accounts up into dashboard totals.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(accounts), nil
}

// SweepOverdue re-derives the status of every unsettled account against the
// current clock and persists the ones that changed. The stored status is a
// cached projection; passing wall-clock time is what flips onTrack accounts
// to overdue, and nothing else re-evaluates them. Returns the number of
// accounts that changed.
func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, acct := range accounts {
		want := DeriveStatus(acct.TotalTuition, acct.TotalPaid, acct.NextDueDate, s.now())
		if want == acct.Status {
			continue
		}
		_, err := s.repo.MutateAccount(ctx, acct.ID, func(acct *FinancialAccount) error {
			acct.Status = DeriveStatus(acct.TotalTuition, acct.TotalPaid, acct.NextDueDate, s.now())
			return nil
		})
		if err != nil {
			return changed, err
		}
		s.feed.AccountChanged(ctx, acct.ID)
		changed++
	}
	if changed > 0 {
		s.bumpReport(ctx)
	}
	return changed, nil
}

// --- Live subscriptions ---

// SubscribeAccounts pushes the full ordered account list to onData now and
// after every account change until the returned Unsubscribe is called.
func (s *Service) SubscribeAccounts(ctx context.Context, onData func([]FinancialAccount), onError func(error)) Unsubscribe {
	push := func() {
		accounts, err := s.repo.ListAccounts(ctx)
		if err != nil {
			onError(err)
			return
		}
		onData(accounts)
	}
	// Subscribe before the first snapshot so a write landing in between
	// still produces a notification.
	unsub := s.feed.watch(ctx, accountsChannel, func(string) { push() })
	push()
	return unsub
}

// SubscribePayments pushes one account's ordered payment list to onData now
// and after every payment recorded against it.
func (s *Service) SubscribePayments(ctx context.Context, accountID string, onData func([]FinancialPayment), onError func(error)) Unsubscribe {
	push := func() {
		payments, err := s.repo.ListPayments(ctx, accountID)
		if err != nil {
			onError(err)
			return
		}
		onData(payments)
	}
	unsub := s.feed.watch(ctx, paymentsChannel, func(changed string) {
		if changed == accountID {
			push()
		}
	})
	push()
	return unsub
}

// SubscribeAllPayments pushes the cross-account payment list to onData now
// and after every recorded payment. Each payment carries its owning account
// ID, which is how the monthly report groups them.
func (s *Service) SubscribeAllPayments(ctx context.Context, onData func([]FinancialPayment), onError func(error)) Unsubscribe {
	push := func() {
		payments, err := s.repo.ListAllPayments(ctx)
		if err != nil {
			onError(err)
			return
		}
		onData(payments)
	}
	unsub := s.feed.watch(ctx, paymentsChannel, func(string) { push() })
	push()
	return unsub
}

func (s *Service) bumpReport(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("ledger report cache bump failed", slog.Any("error", err))
	}
}
