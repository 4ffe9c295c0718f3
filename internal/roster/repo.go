package roster

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository persists roster data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertCourse writes a new course.
func (r *Repository) InsertCourse(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	var lecturerID any
	if c.LecturerID != "" {
		lecturerID = c.LecturerID
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO courses (id, code, title, level, lecturer_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, c.ID, c.Code, c.Title, c.Level, lecturerID)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Course{}, err
	}
	return c, nil
}

// ListCourses returns all courses ordered by code.
func (r *Repository) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, title, level, COALESCE(lecturer_id, ''), created_at
		FROM courses ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Title, &c.Level, &c.LecturerID, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// UpsertStudent creates or updates a student keyed by matric number.
func (r *Repository) UpsertStudent(ctx context.Context, s Student) (Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.MatricNo = strings.ToUpper(strings.TrimSpace(s.MatricNo))
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, matric_no, name, email, level)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (matric_no) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			level = EXCLUDED.level
		RETURNING id, created_at
	`, s.ID, s.MatricNo, s.Name, s.Email, s.Level)
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// FindStudentByMatric returns a student or nil when unknown.
func (r *Repository) FindStudentByMatric(ctx context.Context, matricNo string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, matric_no, name, email, level, created_at
		FROM students WHERE matric_no = $1
	`, strings.ToUpper(strings.TrimSpace(matricNo)))
	var s Student
	if err := row.Scan(&s.ID, &s.MatricNo, &s.Name, &s.Email, &s.Level, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListStudents returns students, optionally filtered by level.
func (r *Repository) ListStudents(ctx context.Context, level int) ([]Student, error) {
	query := `SELECT id, matric_no, name, email, level, created_at FROM students`
	args := []any{}
	if level > 0 {
		query += ` WHERE level = $1`
		args = append(args, level)
	}
	query += ` ORDER BY matric_no`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.MatricNo, &s.Name, &s.Email, &s.Level, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// InsertLecturer writes a new lecturer account.
func (r *Repository) InsertLecturer(ctx context.Context, l Lecturer) (Lecturer, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO lecturers (id, email, name, password_hash, role)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, l.ID, l.Email, l.Name, l.PasswordHash, l.Role)
	if err := row.Scan(&l.CreatedAt); err != nil {
		return Lecturer{}, err
	}
	return l, nil
}

// FindLecturerByEmail returns a lecturer or nil when unknown.
func (r *Repository) FindLecturerByEmail(ctx context.Context, email string) (*Lecturer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, password_hash, created_at
		FROM lecturers WHERE email = $1
	`, email)
	var l Lecturer
	if err := row.Scan(&l.ID, &l.Email, &l.Name, &l.Role, &l.PasswordHash, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// ListLecturers returns all dashboard accounts.
func (r *Repository) ListLecturers(ctx context.Context) ([]Lecturer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, name, role, created_at FROM lecturers ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Lecturer
	for rows.Next() {
		var l Lecturer
		if err := rows.Scan(&l.ID, &l.Email, &l.Name, &l.Role, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// InsertFAQ writes one support entry.
func (r *Repository) InsertFAQ(ctx context.Context, f FAQ) (FAQ, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO faqs (id, question, answer) VALUES ($1,$2,$3) RETURNING created_at
	`, f.ID, f.Question, f.Answer)
	if err := row.Scan(&f.CreatedAt); err != nil {
		return FAQ{}, err
	}
	return f, nil
}

// ListFAQs returns support entries, newest first.
func (r *Repository) ListFAQs(ctx context.Context) ([]FAQ, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question, answer, created_at FROM faqs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []FAQ
	for rows.Next() {
		var f FAQ
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

// PurgeResult reports what the end-of-semester cleanup removed.
type PurgeResult struct {
	Submissions int `json:"submissions"`
	Sessions    int `json:"sessions"`
}

// PurgeSemester deletes submissions and sessions started before the cutoff
// in one transaction. Roster data (students, courses, lecturers) survives.
func (r *Repository) PurgeSemester(ctx context.Context, cutoff time.Time) (PurgeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return PurgeResult{}, err
	}
	defer tx.Rollback()

	var res PurgeResult
	del, err := tx.ExecContext(ctx, `
		DELETE FROM submissions WHERE session_id IN (SELECT id FROM sessions WHERE started_at < $1)
	`, cutoff)
	if err != nil {
		return PurgeResult{}, err
	}
	if n, err := del.RowsAffected(); err == nil {
		res.Submissions = int(n)
	}

	del, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE started_at < $1`, cutoff)
	if err != nil {
		return PurgeResult{}, err
	}
	if n, err := del.RowsAffected(); err == nil {
		res.Sessions = int(n)
	}

	return res, tx.Commit()
}
