package grades

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/madaris-app/madaris/internal/shared"
)

const gradeColumns = `id, student_id, class_id, subject, teacher_id, score, max_score,
	percentage, type, date, notes, created_at, updated_at`

// Repository persists grades in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository on the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a grade.
func (r *Repository) Create(ctx context.Context, g *Grade) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO grades (id, student_id, class_id, subject, teacher_id, score, max_score, percentage, type, date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		g.ID, g.StudentID, g.ClassID, g.Subject, g.TeacherID,
		g.Score, g.MaxScore, g.Percentage, string(g.Type), g.Date, g.Notes)
	if err != nil {
		return infraErr("create grade", err)
	}
	return nil
}

// Get fetches one grade by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Grade, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+gradeColumns+` FROM grades WHERE id = $1`, id)
	g, err := scanGrade(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, infraErr("get grade", err)
	}
	return g, nil
}

// Update overwrites the mutable columns of a grade.
func (r *Repository) Update(ctx context.Context, g *Grade) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE grades
		SET subject = $2, score = $3, max_score = $4, percentage = $5, type = $6,
			date = $7, notes = $8, updated_at = NOW()
		WHERE id = $1`,
		g.ID, g.Subject, g.Score, g.MaxScore, g.Percentage, string(g.Type), g.Date, g.Notes)
	if err != nil {
		return infraErr("update grade", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a grade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return infraErr("delete grade", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListByStudent returns a student's grades, newest assessment first.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]Grade, error) {
	return r.list(ctx, `student_id = $1`, studentID)
}

// ListByClass returns a class's grades, newest assessment first.
func (r *Repository) ListByClass(ctx context.Context, classID string) ([]Grade, error) {
	return r.list(ctx, `class_id = $1`, classID)
}

// ListByTeacher returns the grades a teacher has awarded, newest first.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID string) ([]Grade, error) {
	return r.list(ctx, `teacher_id = $1`, teacherID)
}

func (r *Repository) list(ctx context.Context, where string, arg any) ([]Grade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gradeColumns+` FROM grades WHERE `+where+` ORDER BY date DESC, created_at DESC`, arg)
	if err != nil {
		return nil, infraErr("list grades", err)
	}
	defer rows.Close()

	var out []Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, infraErr("scan grade", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("iterate grades", err)
	}
	return out, nil
}

func scanGrade(row pgx.Row) (*Grade, error) {
	var (
		g     Grade
		gtype string
	)
	err := row.Scan(&g.ID, &g.StudentID, &g.ClassID, &g.Subject, &g.TeacherID,
		&g.Score, &g.MaxScore, &g.Percentage, &gtype, &g.Date, &g.Notes,
		&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Type = AssessmentType(gtype)
	return &g, nil
}

func infraErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(shared.ErrUnavailable, err))
}
