package teachers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/madaris-app/madaris/internal/shared"
)

const teacherColumns = `id, name, email, subject, status, auth_id, phone, qualifications,
	created_at, updated_at`

// Repository persists teachers in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository on the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns teachers newest first, narrowed by the filters.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE 1=1`
	args := []any{}

	if filters.Subject != "" {
		args = append(args, filters.Subject)
		query += ` AND subject = $` + strconv.Itoa(len(args))
	}
	if filters.Status != "" {
		args = append(args, string(filters.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR email ILIKE $` + n + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, infraErr("list teachers", err)
	}
	defer rows.Close()

	var out []Teacher
	for rows.Next() {
		tch, err := scanTeacher(rows)
		if err != nil {
			return nil, infraErr("scan teacher", err)
		}
		out = append(out, *tch)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("iterate teachers", err)
	}
	return out, nil
}

// Get fetches one teacher by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Teacher, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id)
	tch, err := scanTeacher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, infraErr("get teacher", err)
	}
	return tch, nil
}

// Create inserts a teacher.
func (r *Repository) Create(ctx context.Context, tch *Teacher) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO teachers (id, name, email, subject, status, auth_id, phone, qualifications)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		tch.ID, tch.Name, tch.Email, tch.Subject, string(tch.Status),
		tch.AuthID, tch.Phone, tch.Qualifications)
	if err != nil {
		return infraErr("create teacher", err)
	}
	return nil
}

// Update overwrites the mutable columns of a teacher.
func (r *Repository) Update(ctx context.Context, tch *Teacher) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE teachers
		SET name = $2, email = $3, subject = $4, status = $5, auth_id = NULLIF($6, ''),
			phone = $7, qualifications = $8, updated_at = NOW()
		WHERE id = $1`,
		tch.ID, tch.Name, tch.Email, tch.Subject, string(tch.Status),
		tch.AuthID, tch.Phone, tch.Qualifications)
	if err != nil {
		return infraErr("update teacher", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a teacher.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return infraErr("delete teacher", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanTeacher(row pgx.Row) (*Teacher, error) {
	var (
		tch    Teacher
		status string
		authID *string
	)
	err := row.Scan(&tch.ID, &tch.Name, &tch.Email, &tch.Subject, &status, &authID,
		&tch.Phone, &tch.Qualifications, &tch.CreatedAt, &tch.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tch.Status = TeacherStatus(status)
	if authID != nil {
		tch.AuthID = *authID
	}
	return &tch, nil
}

func infraErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(shared.ErrUnavailable, err))
}
