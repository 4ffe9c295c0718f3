package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"rollcall/internal/geo"
)

// CodeLength is the fixed length of an attendance session code.
const CodeLength = 4

// Session is one live attendance-taking window for a course. Submissions are
// accepted while it is active, not expired, and the submitter is inside the
// geofence anchored at AnchorLat/AnchorLng.
type Session struct {
	ID         string    `json:"id"`
	CourseCode string    `json:"course_code"`
	Level      int       `json:"level"`
	Code       string    `json:"code"`
	AnchorLat  float64   `json:"anchor_lat"`
	AnchorLng  float64   `json:"anchor_lng"`
	RadiusM    float64   `json:"radius_m"`
	Active     bool      `json:"active"`
	StartedAt  time.Time `json:"started_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedBy  string    `json:"created_by,omitempty"`
}

// Expired reports whether the session window has passed at the given instant.
func (s Session) Expired(at time.Time) bool {
	return at.After(s.ExpiresAt)
}

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidLevel = errors.New("level must be one of 100-600")
	ErrCodeSpace    = errors.New("could not allocate a unique session code")
)

// ValidLevel reports whether a level is one of the recognized course levels.
func ValidLevel(level int) bool {
	return level >= 100 && level <= 600 && level%100 == 0
}

// Service coordinates session lifecycle against the repository.
type Service struct {
	repo *Repository
	ttl  time.Duration
	now  func() time.Time
}

// NewService creates a service with a default session window.
func NewService(repo *Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

// Start opens a new session anchored at the lecturer's location. The short
// code is unique among open sessions; allocation retries on collision.
func (s *Service) Start(ctx context.Context, courseCode string, level int, anchor geo.Sample, radiusM float64, ttl time.Duration, createdBy string) (Session, error) {
	if courseCode == "" {
		return Session{}, errors.New("course code required")
	}
	if !ValidLevel(level) {
		return Session{}, ErrInvalidLevel
	}
	if radiusM <= 0 {
		return Session{}, errors.New("radius must be positive")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now().UTC()
	sess := Session{
		CourseCode: courseCode,
		Level:      level,
		AnchorLat:  anchor.Lat,
		AnchorLng:  anchor.Lng,
		RadiusM:    radiusM,
		Active:     true,
		StartedAt:  now,
		ExpiresAt:  now.Add(ttl),
		CreatedBy:  createdBy,
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateCode()
		if err != nil {
			return Session{}, err
		}
		sess.Code = code
		created, err := s.repo.Insert(ctx, sess)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, errCodeTaken) {
			return Session{}, err
		}
	}
	return Session{}, ErrCodeSpace
}

// Close marks a session inactive ahead of its expiry.
func (s *Service) Close(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, false)
}

// ByCode resolves an open session from its short code.
func (s *Service) ByCode(ctx context.Context, code string) (Session, error) {
	return s.repo.FindOpenByCode(ctx, code)
}

// ByID resolves any session from its id.
func (s *Service) ByID(ctx context.Context, id string) (Session, error) {
	return s.repo.FindByID(ctx, id)
}

// ListOpen returns sessions still marked active.
func (s *Service) ListOpen(ctx context.Context) ([]Session, error) {
	return s.repo.ListOpen(ctx)
}

// SweepExpired deactivates sessions whose window has passed and returns how
// many were closed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.repo.DeactivateExpired(ctx, s.now().UTC())
}

// generateCode draws a 4-digit code from crypto/rand.
func generateCode() (string, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	n := (int(b[0])<<8 | int(b[1])) % 10000
	return fmt.Sprintf("%04d", n), nil
}
