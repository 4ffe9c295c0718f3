package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/geo"
)

// Repository persists submissions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new submission.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (id, session_id, matric_no, student_name, fingerprint, lat, lng, accuracy, status, receipt, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, rec.ID, rec.SessionID, rec.MatricNo, rec.StudentName, rec.Fingerprint,
		rec.Lat, rec.Lng, rec.Accuracy, rec.Status, rec.Receipt, rec.SubmittedAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// FindByMatric returns the student's submission in a session, or nil.
func (r *Repository) FindByMatric(ctx context.Context, sessionID, matricNo string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT s.id, s.session_id, ss.code, ss.course_code, s.matric_no, s.student_name,
		       s.fingerprint, s.lat, s.lng, s.accuracy, s.status, s.receipt, s.submitted_at
		FROM submissions s
		JOIN sessions ss ON ss.id = s.session_id
		WHERE s.session_id = $1 AND s.matric_no = $2
	`, sessionID, matricNo)
	var rec Record
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.SessionCode, &rec.Course, &rec.MatricNo,
		&rec.StudentName, &rec.Fingerprint, &rec.Lat, &rec.Lng, &rec.Accuracy,
		&rec.Status, &rec.Receipt, &rec.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeviceUsedByOther reports whether a fingerprint already backs another
// student's submission in this session.
func (r *Repository) DeviceUsedByOther(ctx context.Context, sessionID, fingerprint, matricNo string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM submissions
		WHERE session_id = $1 AND fingerprint = $2 AND matric_no <> $3
	`, sessionID, fingerprint, matricNo).Scan(&n)
	return n > 0, err
}

// Recent returns the latest submissions for the live view, joined against the
// roster for student ids and emails.
func (r *Repository) Recent(ctx context.Context, sessionID string, limit int) ([]LiveSubmission, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(st.id, s.matric_no), s.student_name, COALESCE(st.email, ''),
		       s.status, s.submitted_at, s.lat, s.lng, s.accuracy
		FROM submissions s
		LEFT JOIN students st ON st.matric_no = s.matric_no
		WHERE s.session_id = $1
		ORDER BY s.submitted_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []LiveSubmission
	for rows.Next() {
		var ls LiveSubmission
		var loc geo.Sample
		if err := rows.Scan(&ls.StudentID, &ls.StudentName, &ls.StudentEmail,
			&ls.Status, &ls.Timestamp, &loc.Lat, &loc.Lng, &loc.Accuracy); err != nil {
			return nil, err
		}
		ls.Location = &loc
		res = append(res, ls)
	}
	return res, rows.Err()
}

// Stats aggregates submission counters for a session.
func (r *Repository) Stats(ctx context.Context, sessionID string) (Stats, error) {
	var st Stats
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1),
		       COUNT(1) FILTER (WHERE status = 'present'),
		       MAX(submitted_at)
		FROM submissions WHERE session_id = $1
	`, sessionID).Scan(&st.TotalSubmissions, &st.PresentCount, &last)
	if err != nil {
		return Stats{}, err
	}
	if last.Valid {
		st.LastUpdated = last.Time
	}
	return st, nil
}

// ListBySession returns every submission in a session, oldest first; used by
// report exports.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.session_id, ss.code, ss.course_code, s.matric_no, s.student_name,
		       s.fingerprint, s.lat, s.lng, s.accuracy, s.status, s.receipt, s.submitted_at
		FROM submissions s
		JOIN sessions ss ON ss.id = s.session_id
		WHERE s.session_id = $1
		ORDER BY s.submitted_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.SessionCode, &rec.Course, &rec.MatricNo,
			&rec.StudentName, &rec.Fingerprint, &rec.Lat, &rec.Lng, &rec.Accuracy,
			&rec.Status, &rec.Receipt, &rec.SubmittedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
