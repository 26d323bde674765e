package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/madaris-app/madaris/internal/platform/db"
	"github.com/madaris-app/madaris/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the ledger.
//
// Payments carry a denormalized account_id column instead of living in a
// per-account sub-collection, so the cross-account listing is a plain query.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// recordPaymentAttempts bounds the optimistic retry loop for the payment
// transaction. Exhaustion surfaces shared.ErrConflict to the caller.
const recordPaymentAttempts = 3

const accountColumns = `
	id, student_id, student_name, grade, currency,
	total_tuition, total_paid, monthly_installment, installment_count,
	plan_start_date, next_due_date, status, notes,
	last_payment_amount, last_payment_date, created_at, updated_at`

// UpsertAccount creates the account, or merges over the existing row when an
// account with the same ID already exists. The account ID equals the student
// ID, which is how one-account-per-student is enforced.
func (r *Repository) UpsertAccount(ctx context.Context, acct *FinancialAccount) error {
	query := `
		INSERT INTO financial_accounts (
			id, student_id, student_name, grade, currency,
			total_tuition, total_paid, monthly_installment, installment_count,
			plan_start_date, next_due_date, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			student_id = EXCLUDED.student_id,
			student_name = EXCLUDED.student_name,
			grade = EXCLUDED.grade,
			currency = EXCLUDED.currency,
			total_tuition = EXCLUDED.total_tuition,
			total_paid = EXCLUDED.total_paid,
			monthly_installment = EXCLUDED.monthly_installment,
			installment_count = EXCLUDED.installment_count,
			plan_start_date = EXCLUDED.plan_start_date,
			next_due_date = EXCLUDED.next_due_date,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		acct.ID,
		acct.StudentID,
		acct.StudentName,
		acct.Grade,
		acct.Currency,
		acct.TotalTuition,
		acct.TotalPaid,
		acct.MonthlyInstallment,
		acct.InstallmentCount,
		acct.PlanStartDate,
		acct.NextDueDate,
		string(acct.Status),
		acct.Notes,
	).Scan(&acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return infraErr("upsert account", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (r *Repository) GetAccount(ctx context.Context, id string) (*FinancialAccount, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM financial_accounts WHERE id = $1`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, infraErr("get account", err)
	}
	return acct, nil
}

// ListAccounts returns all accounts, newest first.
func (r *Repository) ListAccounts(ctx context.Context) ([]FinancialAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM financial_accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, infraErr("list accounts", err)
	}
	defer rows.Close()

	var accounts []FinancialAccount
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, infraErr("list accounts", err)
		}
		accounts = append(accounts, *acct)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("list accounts", err)
	}
	return accounts, nil
}

// MutateAccount reads the account inside a transaction, applies fn to it and
// writes the result back. The row lock makes the read-modify-write atomic
// with respect to concurrent mutations of the same account.
func (r *Repository) MutateAccount(ctx context.Context, id string, fn func(*FinancialAccount) error) (*FinancialAccount, error) {
	var result *FinancialAccount
	err := db.WithTxRetry(ctx, r.pool, recordPaymentAttempts, func(tx pgx.Tx) error {
		acct, err := lockAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(acct); err != nil {
			return err
		}
		if err := updateAccountRow(ctx, tx, acct); err != nil {
			return err
		}
		result = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordPayment executes the payment transaction: fn receives the account's
// current state and returns the payment to append plus the mutated account.
// Payment insert and account roll-up commit atomically; on serialization
// conflict the whole body is retried before shared.ErrConflict surfaces.
func (r *Repository) RecordPayment(ctx context.Context, accountID string, fn func(*FinancialAccount) (*FinancialPayment, error)) (*FinancialPayment, error) {
	var recorded *FinancialPayment
	err := db.WithTxRetry(ctx, r.pool, recordPaymentAttempts, func(tx pgx.Tx) error {
		acct, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}

		payment, err := fn(acct)
		if err != nil {
			return err
		}
		if payment.ID == "" {
			payment.ID = uuid.NewString()
		}
		payment.AccountID = accountID

		err = tx.QueryRow(ctx, `
			INSERT INTO financial_payments (id, account_id, amount, method, payment_date, note, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NOW(), NOW())
			RETURNING created_at, updated_at`,
			payment.ID,
			payment.AccountID,
			payment.Amount,
			string(payment.Method),
			payment.PaymentDate,
			payment.Note,
			payment.CreatedBy,
		).Scan(&payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			return infraErr("insert payment", err)
		}

		if err := updateAccountRow(ctx, tx, acct); err != nil {
			return err
		}
		recorded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

const paymentColumns = `
	id, account_id, amount, method, payment_date, note,
	COALESCE(created_by, ''), created_at, updated_at`

// ListPayments returns all payments for one account, payment date descending.
func (r *Repository) ListPayments(ctx context.Context, accountID string) ([]FinancialPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM financial_payments
		WHERE account_id = $1
		ORDER BY payment_date DESC, created_at DESC`, accountID)
	if err != nil {
		return nil, infraErr("list payments", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

// ListAllPayments returns payments across all accounts, payment date
// descending. Each row carries its owning account's ID.
func (r *Repository) ListAllPayments(ctx context.Context) ([]FinancialPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM financial_payments
		ORDER BY payment_date DESC, created_at DESC`)
	if err != nil {
		return nil, infraErr("list all payments", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

// ListPaymentsInRange returns payments with payment_date in [from, to),
// ascending, across all accounts. Used for monthly buckets.
func (r *Repository) ListPaymentsInRange(ctx context.Context, from, to time.Time) ([]FinancialPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM financial_payments
		WHERE payment_date >= $1 AND payment_date < $2
		ORDER BY payment_date ASC`, from, to)
	if err != nil {
		return nil, infraErr("list payments in range", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

// --- Helpers ---

func lockAccount(ctx context.Context, tx pgx.Tx, id string) (*FinancialAccount, error) {
	row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM financial_accounts WHERE id = $1 FOR UPDATE`, id)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if db.IsSerializationFailure(err) {
		return nil, shared.ErrConflict
	}
	if err != nil {
		return nil, infraErr("lock account", err)
	}
	return acct, nil
}

func updateAccountRow(ctx context.Context, tx pgx.Tx, acct *FinancialAccount) error {
	tag, err := tx.Exec(ctx, `
		UPDATE financial_accounts SET
			student_name = $2, grade = $3, currency = $4,
			total_tuition = $5, total_paid = $6,
			monthly_installment = $7, installment_count = $8,
			plan_start_date = $9, next_due_date = $10,
			status = $11, notes = $12,
			last_payment_amount = $13, last_payment_date = $14,
			updated_at = NOW()
		WHERE id = $1`,
		acct.ID,
		acct.StudentName,
		acct.Grade,
		acct.Currency,
		acct.TotalTuition,
		acct.TotalPaid,
		acct.MonthlyInstallment,
		acct.InstallmentCount,
		acct.PlanStartDate,
		acct.NextDueDate,
		string(acct.Status),
		acct.Notes,
		acct.LastPaymentAmount,
		acct.LastPaymentDate,
	)
	if db.IsSerializationFailure(err) {
		return shared.ErrConflict
	}
	if err != nil {
		return infraErr("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*FinancialAccount, error) {
	var (
		acct                                    FinancialAccount
		tuition, paid, installment, lastPayment pgtype.Numeric
		lastPaymentDate                         pgtype.Timestamptz
		status                                  string
	)
	err := row.Scan(
		&acct.ID, &acct.StudentID, &acct.StudentName, &acct.Grade, &acct.Currency,
		&tuition, &paid, &installment, &acct.InstallmentCount,
		&acct.PlanStartDate, &acct.NextDueDate, &status, &acct.Notes,
		&lastPayment, &lastPaymentDate, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acct.TotalTuition = numericToDecimal(tuition)
	acct.TotalPaid = numericToDecimal(paid)
	acct.MonthlyInstallment = numericToDecimal(installment)
	acct.LastPaymentAmount = numericToDecimal(lastPayment)
	acct.Status = AccountStatus(status)
	if lastPaymentDate.Valid {
		acct.LastPaymentDate = &lastPaymentDate.Time
	}
	return &acct, nil
}

func collectPayments(rows pgx.Rows) ([]FinancialPayment, error) {
	var payments []FinancialPayment
	for rows.Next() {
		var (
			p      FinancialPayment
			amount pgtype.Numeric
			method string
		)
		err := rows.Scan(&p.ID, &p.AccountID, &amount, &method, &p.PaymentDate, &p.Note, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, infraErr("scan payment", err)
		}
		p.Amount = numericToDecimal(amount)
		p.Method = PaymentMethod(method)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("iterate payments", err)
	}
	return payments, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func infraErr(op string, err error) error {
	return fmt.Errorf("ledger: %s: %w", op, errors.Join(shared.ErrUnavailable, err))
}
