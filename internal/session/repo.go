package session

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// errCodeTaken signals a short-code collision with another open session.
var errCodeTaken = errors.New("session code already in use")

// Repository persists sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionCols = `id, course_code, level, code, anchor_lat, anchor_lng, radius_m, active, started_at, expires_at, COALESCE(created_by, '')`

// Insert writes a new session. A partial unique index on open-session codes
// turns collisions into errCodeTaken so the caller can retry with a new code.
func (r *Repository) Insert(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	var createdBy any
	if s.CreatedBy != "" {
		createdBy = s.CreatedBy
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, course_code, level, code, anchor_lat, anchor_lng, radius_m, active, started_at, expires_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, s.ID, s.CourseCode, s.Level, s.Code, s.AnchorLat, s.AnchorLng, s.RadiusM, s.Active, s.StartedAt, s.ExpiresAt, createdBy)
	if err != nil {
		if strings.Contains(err.Error(), "sessions_open_code") {
			return Session{}, errCodeTaken
		}
		return Session{}, err
	}
	return s, nil
}

// FindOpenByCode resolves an active session by its short code.
func (r *Repository) FindOpenByCode(ctx context.Context, code string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionCols+` FROM sessions WHERE code = $1 AND active
	`, code)
	return scanSession(row)
}

// FindByID resolves any session by id.
func (r *Repository) FindByID(ctx context.Context, id string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionCols+` FROM sessions WHERE id = $1
	`, id)
	return scanSession(row)
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOpen returns active sessions, most recent first.
func (r *Repository) ListOpen(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionCols+` FROM sessions WHERE active ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// DeactivateExpired closes sessions whose expiry has passed.
func (r *Repository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET active = FALSE WHERE active AND expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.CourseCode, &s.Level, &s.Code, &s.AnchorLat, &s.AnchorLng,
		&s.RadiusM, &s.Active, &s.StartedAt, &s.ExpiresAt, &s.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}
