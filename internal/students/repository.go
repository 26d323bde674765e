package students

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/madaris-app/madaris/internal/shared"
)

const studentColumns = `id, name, email, grade, status, auth_id, parent_id, phone, address,
	date_of_birth, created_at, updated_at`

// Repository persists students in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository on the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns students newest first, narrowed by the filters.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE 1=1`
	args := []any{}

	if filters.Grade != "" {
		args = append(args, filters.Grade)
		query += ` AND grade = $` + strconv.Itoa(len(args))
	}
	if filters.ParentID != "" {
		args = append(args, filters.ParentID)
		query += ` AND parent_id = $` + strconv.Itoa(len(args))
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
		return nil, infraErr("list students", err)
	}
	defer rows.Close()
	return collectStudents(rows)
}

// Get fetches one student by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Student, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, infraErr("get student", err)
	}
	return st, nil
}

// Create inserts a student.
func (r *Repository) Create(ctx context.Context, st *Student) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (id, name, email, grade, status, auth_id, parent_id, phone, address, date_of_birth)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)`,
		st.ID, st.Name, st.Email, st.Grade, string(st.Status),
		st.AuthID, st.ParentID, st.Phone, st.Address, st.DateOfBirth)
	if err != nil {
		return infraErr("create student", err)
	}
	return nil
}

// Update overwrites the mutable columns of a student.
func (r *Repository) Update(ctx context.Context, st *Student) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE students
		SET name = $2, email = $3, grade = $4, status = $5, auth_id = NULLIF($6, ''),
			parent_id = NULLIF($7, ''), phone = $8, address = $9, date_of_birth = $10,
			updated_at = NOW()
		WHERE id = $1`,
		st.ID, st.Name, st.Email, st.Grade, string(st.Status),
		st.AuthID, st.ParentID, st.Phone, st.Address, st.DateOfBirth)
	if err != nil {
		return infraErr("update student", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a student.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return infraErr("delete student", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func collectStudents(rows pgx.Rows) ([]Student, error) {
	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, infraErr("scan student", err)
		}
		out = append(out, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("iterate students", err)
	}
	return out, nil
}

func scanStudent(row pgx.Row) (*Student, error) {
	var (
		st       Student
		status   string
		authID   *string
		parentID *string
	)
	err := row.Scan(&st.ID, &st.Name, &st.Email, &st.Grade, &status, &authID, &parentID,
		&st.Phone, &st.Address, &st.DateOfBirth, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Status = StudentStatus(status)
	if authID != nil {
		st.AuthID = *authID
	}
	if parentID != nil {
		st.ParentID = *parentID
	}
	return &st, nil
}

func infraErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(shared.ErrUnavailable, err))
}
