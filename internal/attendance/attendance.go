package attendance

import (
	"errors"
	"time"

	"rollcall/internal/device"
	"rollcall/internal/geo"
)

// Submission is one attendance attempt as received from a student device.
type Submission struct {
	MatricNo    string
	SessionCode string
	Level       int
	Location    geo.Sample
	Device      device.Info
}

// Record is a stored attendance submission.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	SessionCode string    `json:"session_code"`
	Course      string    `json:"course"`
	MatricNo    string    `json:"matric_no"`
	StudentName string    `json:"student_name"`
	Fingerprint string    `json:"-"`
	Lat         float64   `json:"-"`
	Lng         float64   `json:"-"`
	Accuracy    float64   `json:"-"`
	Status      string    `json:"status"`
	Receipt     string    `json:"receipt"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SessionInfo summarizes the session a live snapshot belongs to.
type SessionInfo struct {
	SessionCode string    `json:"session_code"`
	IsActive    bool      `json:"is_active"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LiveSubmission is one row of a live snapshot.
type LiveSubmission struct {
	StudentID    string      `json:"student_id"`
	StudentName  string      `json:"student_name"`
	StudentEmail string      `json:"student_email"`
	Status       string      `json:"status"`
	Timestamp    time.Time   `json:"timestamp"`
	Location     *geo.Sample `json:"location,omitempty"`
}

// Stats are the aggregate counters shown on the live view.
type Stats struct {
	TotalSubmissions int       `json:"total_submissions"`
	PresentCount     int       `json:"present_count"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Snapshot is the full live-session view. Each fetch replaces the previous
// snapshot wholesale; there is no incremental merge.
type Snapshot struct {
	SessionInfo       SessionInfo      `json:"session_info"`
	RecentSubmissions []LiveSubmission `json:"recent_submissions"`
	LiveStats         Stats            `json:"live_stats"`
}

// Business-rule rejections for a submission attempt.
var (
	ErrSessionNotFound = errors.New("no active session for this code")
	ErrSessionExpired  = errors.New("attendance session has expired")
	ErrOutsideGeofence = errors.New("location is outside the allowed area")
	ErrDeviceReused    = errors.New("device already used in this session")
	ErrUnknownStudent  = errors.New("matric number not recognized")
)

// AlreadySubmittedError carries the existing record so callers can show when
// the student first submitted.
type AlreadySubmittedError struct {
	Existing Record
}

func (e *AlreadySubmittedError) Error() string {
	return "student already submitted for this session"
}
