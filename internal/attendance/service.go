package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"rollcall/internal/geo"
	"rollcall/internal/roster"
	"rollcall/internal/session"
)

type sessionDirectory interface {
	ByCode(ctx context.Context, code string) (session.Session, error)
	ByID(ctx context.Context, id string) (session.Session, error)
}

type studentDirectory interface {
	FindStudentByMatric(ctx context.Context, matricNo string) (*roster.Student, error)
}

type recordStore interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	FindByMatric(ctx context.Context, sessionID, matricNo string) (*Record, error)
	DeviceUsedByOther(ctx context.Context, sessionID, fingerprint, matricNo string) (bool, error)
	Recent(ctx context.Context, sessionID string, limit int) ([]LiveSubmission, error)
	Stats(ctx context.Context, sessionID string) (Stats, error)
}

type deviceClaimer interface {
	Claim(ctx context.Context, sessionID, fingerprint, matricNo string, ttl time.Duration) (claimed bool, owner string, err error)
}

type statsCache interface {
	Get(ctx context.Context, sessionID string) (Stats, bool)
}

// Service runs the server-side submission pipeline: session resolution,
// geofencing, duplicate-student and duplicate-device rejection, receipt
// issuance, and live snapshot assembly.
type Service struct {
	sessions    sessionDirectory
	students    studentDirectory
	records     recordStore
	devices     deviceClaimer
	stats       statsCache
	signer      *Signer
	recentLimit int
	now         func() time.Time
}

// NewService wires the pipeline. devices and stats may be nil; the Postgres
// record store stays authoritative for duplicate-device checks either way.
func NewService(sessions sessionDirectory, students studentDirectory, records recordStore, devices deviceClaimer, stats statsCache, signer *Signer, recentLimit int) *Service {
	if recentLimit <= 0 {
		recentLimit = 25
	}
	return &Service{
		sessions:    sessions,
		students:    students,
		records:     records,
		devices:     devices,
		stats:       stats,
		signer:      signer,
		recentLimit: recentLimit,
		now:         time.Now,
	}
}

// Submit processes one attendance attempt. The matric number is uppercased
// and the decision order is fixed: session, geofence, student, duplicate
// submission, duplicate device.
func (s *Service) Submit(ctx context.Context, sub Submission) (Record, error) {
	sub.MatricNo = strings.ToUpper(strings.TrimSpace(sub.MatricNo))
	if err := validate(sub); err != nil {
		countOutcome("invalid")
		return Record{}, err
	}

	now := s.now().UTC()

	sess, err := s.sessions.ByCode(ctx, sub.SessionCode)
	if err != nil {
		countOutcome("not_found")
		if errors.Is(err, session.ErrNotFound) {
			return Record{}, ErrSessionNotFound
		}
		return Record{}, err
	}
	if sess.Expired(now) {
		countOutcome("expired")
		return Record{}, ErrSessionExpired
	}

	dist := geo.Haversine(sess.AnchorLat, sess.AnchorLng, sub.Location.Lat, sub.Location.Lng)
	if dist > sess.RadiusM {
		countOutcome("geofence")
		return Record{}, fmt.Errorf("%w: %.0fm from session point, allowed %.0fm", ErrOutsideGeofence, dist, sess.RadiusM)
	}

	studentName := ""
	if s.students != nil {
		student, err := s.students.FindStudentByMatric(ctx, sub.MatricNo)
		if err != nil {
			countOutcome("error")
			return Record{}, err
		}
		if student == nil {
			countOutcome("unknown_student")
			return Record{}, ErrUnknownStudent
		}
		studentName = student.Name
	}

	existing, err := s.records.FindByMatric(ctx, sess.ID, sub.MatricNo)
	if err != nil {
		countOutcome("error")
		return Record{}, err
	}
	if existing != nil {
		countOutcome("duplicate_submission")
		return Record{}, &AlreadySubmittedError{Existing: *existing}
	}

	if err := s.checkDevice(ctx, sess, sub.Device.Fingerprint, sub.MatricNo, now); err != nil {
		countOutcome("device_reused")
		return Record{}, err
	}

	rec := Record{
		SessionID:   sess.ID,
		SessionCode: sess.Code,
		Course:      sess.CourseCode,
		MatricNo:    sub.MatricNo,
		StudentName: studentName,
		Fingerprint: sub.Device.Fingerprint,
		Lat:         sub.Location.Lat,
		Lng:         sub.Location.Lng,
		Accuracy:    sub.Location.Accuracy,
		Status:      "present",
		Receipt:     s.signer.Sign(sess.Code, sub.MatricNo, now),
		SubmittedAt: now,
	}
	rec, err = s.records.Insert(ctx, rec)
	if err != nil {
		countOutcome("error")
		return Record{}, err
	}
	countOutcome("success")
	return rec, nil
}

// checkDevice rejects a fingerprint already used by another student in this
// session. Redis claims are the fast path; Postgres stays authoritative, so
// a redis outage degrades to the database check alone.
func (s *Service) checkDevice(ctx context.Context, sess session.Session, fingerprint, matricNo string, now time.Time) error {
	if s.devices != nil {
		claimed, owner, err := s.devices.Claim(ctx, sess.ID, fingerprint, matricNo, sess.ExpiresAt.Sub(now))
		if err != nil {
			log.Printf("device claim unavailable, falling back to db: %v", err)
		} else if !claimed && owner != matricNo {
			return ErrDeviceReused
		}
	}
	used, err := s.records.DeviceUsedByOther(ctx, sess.ID, fingerprint, matricNo)
	if err != nil {
		return err
	}
	if used {
		return ErrDeviceReused
	}
	return nil
}

// Live assembles a snapshot for the monitoring view. Stats come from the
// worker-maintained cache when warm, otherwise straight from Postgres.
func (s *Service) Live(ctx context.Context, sessionID string) (Snapshot, error) {
	sess, err := s.sessions.ByID(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	recent, err := s.records.Recent(ctx, sessionID, s.recentLimit)
	if err != nil {
		return Snapshot{}, err
	}

	var stats Stats
	cached := false
	if s.stats != nil {
		stats, cached = s.stats.Get(ctx, sessionID)
	}
	if !cached {
		if stats, err = s.records.Stats(ctx, sessionID); err != nil {
			return Snapshot{}, err
		}
	}

	return Snapshot{
		SessionInfo: SessionInfo{
			SessionCode: sess.Code,
			IsActive:    sess.Active && !sess.Expired(s.now().UTC()),
			ExpiresAt:   sess.ExpiresAt,
		},
		RecentSubmissions: recent,
		LiveStats:         stats,
	}, nil
}

func validate(sub Submission) error {
	if sub.MatricNo == "" {
		return errors.New("matric number required")
	}
	if len(sub.SessionCode) != session.CodeLength {
		return fmt.Errorf("session code must be %d characters", session.CodeLength)
	}
	if !session.ValidLevel(sub.Level) {
		return errors.New("invalid level")
	}
	if sub.Location.Accuracy < 0 || sub.Location.Accuracy > geo.MaxAccuracy {
		return fmt.Errorf("accuracy out of range [0, %d]", geo.MaxAccuracy)
	}
	if sub.Device.Fingerprint == "" {
		return errors.New("device fingerprint required")
	}
	return nil
}
