package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/madaris-app/madaris/internal/shared"
)

const enrollmentColumns = `id, student_id, class_id, enrolled_at, status, created_at, updated_at`

// uniqueViolation is the SQLSTATE for a duplicate (student_id, class_id).
const uniqueViolation = "23505"

// Repository persists enrollments in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository on the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an enrollment. A duplicate student/class pair surfaces as
// shared.ErrConflict.
func (r *Repository) Create(ctx context.Context, e *Enrollment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO enrollments (id, student_id, class_id, enrolled_at, status)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.StudentID, e.ClassID, e.EnrolledAt, string(e.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrConflict
		}
		return infraErr("create enrollment", err)
	}
	return nil
}

// Get fetches one enrollment by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Enrollment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id)
	e, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, infraErr("get enrollment", err)
	}
	return e, nil
}

// FindByStudentAndClass fetches the enrollment row for a student/class pair.
func (r *Repository) FindByStudentAndClass(ctx context.Context, studentID, classID string) (*Enrollment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 AND class_id = $2`,
		studentID, classID)
	e, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, infraErr("find enrollment", err)
	}
	return e, nil
}

// SetStatus updates an enrollment's lifecycle state.
func (r *Repository) SetStatus(ctx context.Context, id string, status Status, enrolledAt *time.Time) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if enrolledAt != nil {
		tag, err = r.pool.Exec(ctx,
			`UPDATE enrollments SET status = $2, enrolled_at = $3, updated_at = NOW() WHERE id = $1`,
			id, string(status), *enrolledAt)
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE enrollments SET status = $2, updated_at = NOW() WHERE id = $1`,
			id, string(status))
	}
	if err != nil {
		return infraErr("set enrollment status", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListByClass returns a class's enrollments, newest first.
func (r *Repository) ListByClass(ctx context.Context, classID string) ([]Enrollment, error) {
	return r.list(ctx, `class_id = $1`, classID)
}

// ListByStudent returns a student's enrollments, newest first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return r.list(ctx, `student_id = $1`, studentID)
}

// ActiveStudentIDs returns the IDs of actively enrolled students of a class.
func (r *Repository) ActiveStudentIDs(ctx context.Context, classID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM enrollments WHERE class_id = $1 AND status = $2 ORDER BY enrolled_at`,
		classID, string(StatusActive))
	if err != nil {
		return nil, infraErr("active student ids", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, infraErr("scan student id", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("iterate student ids", err)
	}
	return out, nil
}

func (r *Repository) list(ctx context.Context, where string, arg any) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE `+where+` ORDER BY enrolled_at DESC`, arg)
	if err != nil {
		return nil, infraErr("list enrollments", err)
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, infraErr("scan enrollment", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("iterate enrollments", err)
	}
	return out, nil
}

func scanEnrollment(row pgx.Row) (*Enrollment, error) {
	var (
		e      Enrollment
		status string
	)
	err := row.Scan(&e.ID, &e.StudentID, &e.ClassID, &e.EnrolledAt, &status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = Status(status)
	return &e, nil
}

func infraErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(shared.ErrUnavailable, err))
}
