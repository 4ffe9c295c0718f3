package geo

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Failure taxonomy for position acquisition. Each class carries a fixed
// user-facing message via Message.
var (
	ErrNotSupported        = errors.New("geolocation not supported")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

// Message maps an acquisition failure to a human-readable prompt.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Location access was denied. Please allow location access and try again."
	case errors.Is(err, ErrPositionUnavailable):
		return "Your location could not be determined. Move to an open area and try again."
	case errors.Is(err, ErrTimeout):
		return "Locating you took too long. Please try again."
	case errors.Is(err, ErrNotSupported):
		return "This device does not support location services."
	default:
		return "Could not get your location. Please try again."
	}
}

// Source produces one position fix per call. Implementations bridge to a
// real positioning backend (browser runtime, GPS daemon, a fixed test point).
type Source interface {
	Position(ctx context.Context, highAccuracy bool) (Sample, error)
}

// Options configure an Acquirer.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration // per-request deadline, default 10s
	MaxAge       time.Duration // cached fix reuse window, default 5m
}

// DefaultOptions matches the submission flow: one high-accuracy request with
// a 10 second deadline, reusing fixes up to 5 minutes old.
func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: 10 * time.Second, MaxAge: 5 * time.Minute}
}

// Acquirer issues single-shot position requests against a Source. There are
// no automatic retries; re-acquisition is an explicit new Acquire call.
type Acquirer struct {
	src  Source
	opts Options

	mu     sync.Mutex
	cached Sample
	fixAt  time.Time

	now func() time.Time
}

// NewAcquirer wraps a source. Zero option fields take their defaults.
func NewAcquirer(src Source, opts Options) *Acquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAge < 0 {
		opts.MaxAge = 0
	}
	return &Acquirer{src: src, opts: opts, now: time.Now}
}

// Acquire returns one location sample with accuracy already clamped. A cached
// fix younger than MaxAge is returned without touching the source. A nil
// source classifies as ErrNotSupported; a deadline hit as ErrTimeout.
func (a *Acquirer) Acquire(ctx context.Context) (Sample, error) {
	if a.src == nil {
		return Sample{}, ErrNotSupported
	}

	a.mu.Lock()
	if !a.fixAt.IsZero() && a.now().Sub(a.fixAt) < a.opts.MaxAge {
		s := a.cached
		a.mu.Unlock()
		return s, nil
	}
	a.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	s, err := a.src.Position(reqCtx, a.opts.HighAccuracy)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Sample{}, ErrTimeout
		}
		return Sample{}, err
	}
	s.Accuracy = ClampAccuracy(s.Accuracy)

	a.mu.Lock()
	a.cached, a.fixAt = s, a.now()
	a.mu.Unlock()
	return s, nil
}

// Invalidate drops the cached fix so the next Acquire hits the source.
func (a *Acquirer) Invalidate() {
	a.mu.Lock()
	a.fixAt = time.Time{}
	a.mu.Unlock()
}
