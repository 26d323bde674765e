package classes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/madaris-app/madaris/internal/platform/db"
	"github.com/madaris-app/madaris/internal/shared"
)

const classColumns = `id, name, grade, teacher_id, teacher_name, students, schedule, room, capacity,
	curriculum_url, curriculum_file_name, curriculum_storage_path, curriculum_updated_at,
	created_at, updated_at`

const scheduleColumns = `id, class_id, student_id, teacher_id, day, time, start_minutes,
	subject, teacher, room, created_at, updated_at`

// Repository persists classes and their expanded timetable entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository on the shared pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns classes newest first, narrowed by the filters.
func (r *Repository) List(ctx context.Context, filters Filters) ([]Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE 1=1`
	args := []any{}

	if filters.Grade != "" {
		args = append(args, filters.Grade)
		query += ` AND grade = $` + strconv.Itoa(len(args))
	}
	if filters.TeacherID != "" {
		args = append(args, filters.TeacherID)
		query += ` AND teacher_id = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		query += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, infraErr("list classes", err)
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		cls, err := scanClass(rows)
		if err != nil {
			return nil, infraErr("scan class", err)
		}
		out = append(out, *cls)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("iterate classes", err)
	}
	return out, nil
}

// Get fetches one class by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Class, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id)
	cls, err := scanClass(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, infraErr("get class", err)
	}
	return cls, nil
}

// Create inserts a class.
func (r *Repository) Create(ctx context.Context, cls *Class) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO classes (id, name, grade, teacher_id, teacher_name, students, schedule, room, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cls.ID, cls.Name, cls.Grade, cls.TeacherID, cls.TeacherName,
		cls.Students, cls.Schedule, cls.Room, cls.Capacity)
	if err != nil {
		return infraErr("create class", err)
	}
	return nil
}

// Update overwrites the mutable columns of a class (curriculum fields are
// handled separately).
func (r *Repository) Update(ctx context.Context, cls *Class) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE classes
		SET name = $2, grade = $3, teacher_id = $4, teacher_name = $5, schedule = $6,
			room = $7, capacity = $8, updated_at = NOW()
		WHERE id = $1`,
		cls.ID, cls.Name, cls.Grade, cls.TeacherID, cls.TeacherName,
		cls.Schedule, cls.Room, cls.Capacity)
	if err != nil {
		return infraErr("update class", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateCurriculum records the current curriculum file of a class.
func (r *Repository) UpdateCurriculum(ctx context.Context, id, url, fileName, storagePath string, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE classes
		SET curriculum_url = $2, curriculum_file_name = $3, curriculum_storage_path = $4,
			curriculum_updated_at = $5, updated_at = NOW()
		WHERE id = $1`,
		id, url, fileName, storagePath, updatedAt)
	if err != nil {
		return infraErr("update curriculum", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a class and its timetable entries.
func (r *Repository) Delete(ctx context.Context, id string) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM schedules WHERE class_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrConflict) {
			return err
		}
		return infraErr("delete class", err)
	}
	return nil
}

// SetStudentCount refreshes the denormalized enrollment count on a class.
func (r *Repository) SetStudentCount(ctx context.Context, id string, count int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE classes SET students = $2, updated_at = NOW() WHERE id = $1`, id, count)
	if err != nil {
		return infraErr("set student count", err)
	}
	return nil
}

// ReplaceSchedules swaps a class's timetable entries in one transaction, so
// readers never observe the timetable half-rebuilt.
func (r *Repository) ReplaceSchedules(ctx context.Context, classID string, entries []ScheduleEntry) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM schedules WHERE class_id = $1`, classID); err != nil {
			return err
		}
		for _, e := range entries {
			_, err := tx.Exec(ctx, `
				INSERT INTO schedules (id, class_id, student_id, teacher_id, day, time, start_minutes, subject, teacher, room)
				VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`,
				e.ID, e.ClassID, e.StudentID, e.TeacherID, string(e.Day), e.Time,
				e.StartMinutes, e.Subject, e.Teacher, e.Room)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return err
		}
		return infraErr("replace schedules", err)
	}
	return nil
}

// SchedulesByClass returns a class's timetable, weekday then start time.
func (r *Repository) SchedulesByClass(ctx context.Context, classID string) ([]ScheduleEntry, error) {
	return r.querySchedules(ctx, `class_id = $1`, classID)
}

// SchedulesByStudent returns a student's timetable across classes.
func (r *Repository) SchedulesByStudent(ctx context.Context, studentID string) ([]ScheduleEntry, error) {
	return r.querySchedules(ctx, `student_id = $1`, studentID)
}

// SchedulesByTeacher returns a teacher's timetable, deduplicated to one
// entry per class slot.
func (r *Repository) SchedulesByTeacher(ctx context.Context, teacherID string) ([]ScheduleEntry, error) {
	query := `SELECT DISTINCT ON (class_id, day, time) ` + scheduleColumns + `
		FROM schedules WHERE teacher_id = $1
		ORDER BY class_id, day, time`
	rows, err := r.pool.Query(ctx, query, teacherID)
	if err != nil {
		return nil, infraErr("schedules by teacher", err)
	}
	defer rows.Close()
	entries, err := collectSchedules(rows)
	if err != nil {
		return nil, err
	}
	sortSchedules(entries)
	return entries, nil
}

func (r *Repository) querySchedules(ctx context.Context, where string, arg any) ([]ScheduleEntry, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE ` + where
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, infraErr("query schedules", err)
	}
	defer rows.Close()
	entries, err := collectSchedules(rows)
	if err != nil {
		return nil, err
	}
	sortSchedules(entries)
	return entries, nil
}

func collectSchedules(rows pgx.Rows) ([]ScheduleEntry, error) {
	var out []ScheduleEntry
	for rows.Next() {
		var (
			e         ScheduleEntry
			studentID *string
			day       string
		)
		err := rows.Scan(&e.ID, &e.ClassID, &studentID, &e.TeacherID, &day, &e.Time,
			&e.StartMinutes, &e.Subject, &e.Teacher, &e.Room, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, infraErr("scan schedule", err)
		}
		e.Day = Weekday(day)
		if studentID != nil {
			e.StudentID = *studentID
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("iterate schedules", err)
	}
	return out, nil
}

func scanClass(row pgx.Row) (*Class, error) {
	var (
		cls         Class
		currURL     *string
		currName    *string
		currPath    *string
		currUpdated *time.Time
	)
	err := row.Scan(&cls.ID, &cls.Name, &cls.Grade, &cls.TeacherID, &cls.TeacherName,
		&cls.Students, &cls.Schedule, &cls.Room, &cls.Capacity,
		&currURL, &currName, &currPath, &currUpdated, &cls.CreatedAt, &cls.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if currURL != nil {
		cls.CurriculumURL = *currURL
	}
	if currName != nil {
		cls.CurriculumFileName = *currName
	}
	if currPath != nil {
		cls.CurriculumStoragePath = *currPath
	}
	cls.CurriculumUpdatedAt = currUpdated
	return &cls, nil
}

func infraErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(shared.ErrUnavailable, err))
}
