package geo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClampAccuracy(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative", -5, 0},
		{"above cap", 15000, 10000},
		{"in range", 42, 42},
		{"zero", 0, 0},
		{"at cap", 10000, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampAccuracy(tt.in); got != tt.want {
				t.Errorf("ClampAccuracy(%g) = %g, want %g", tt.in, got, tt.want)
			}
		})
	}
}

func TestHaversine(t *testing.T) {
	// Lagos island to Unilag campus, roughly 7km.
	d := Haversine(6.4541, 3.3947, 6.5158, 3.3898)
	if d < 6500 || d > 7500 {
		t.Errorf("Haversine() = %.0fm, want around 6.9km", d)
	}
	if z := Haversine(6.5, 3.3, 6.5, 3.3); z != 0 {
		t.Errorf("distance to self = %g, want 0", z)
	}
}

type stubSource struct {
	sample Sample
	err    error
	calls  int
	wait   time.Duration
}

func (s *stubSource) Position(ctx context.Context, _ bool) (Sample, error) {
	s.calls++
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		}
	}
	return s.sample, s.err
}

func TestAcquirerClampsAccuracy(t *testing.T) {
	src := &stubSource{sample: Sample{Lat: 6.5, Lng: 3.3, Accuracy: 15000}}
	a := NewAcquirer(src, Options{})
	got, err := a.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got.Accuracy != 10000 {
		t.Errorf("Accuracy = %g, want 10000", got.Accuracy)
	}
}

func TestAcquirerCachesWithinMaxAge(t *testing.T) {
	src := &stubSource{sample: Sample{Lat: 6.5, Lng: 3.3, Accuracy: 42}}
	a := NewAcquirer(src, Options{MaxAge: 5 * time.Minute})

	if _, err := a.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if _, err := a.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1 (fresh fix should be reused)", src.calls)
	}

	// Age the fix past MaxAge.
	a.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	if _, err := a.Acquire(context.Background()); err != nil {
		t.Fatalf("third Acquire() error = %v", err)
	}
	if src.calls != 2 {
		t.Errorf("source called %d times after expiry, want 2", src.calls)
	}
}

func TestAcquirerInvalidate(t *testing.T) {
	src := &stubSource{sample: Sample{Accuracy: 1}}
	a := NewAcquirer(src, Options{MaxAge: time.Hour})
	_, _ = a.Acquire(context.Background())
	a.Invalidate()
	_, _ = a.Acquire(context.Background())
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2 after Invalidate", src.calls)
	}
}

func TestAcquirerTimeout(t *testing.T) {
	src := &stubSource{wait: 200 * time.Millisecond}
	a := NewAcquirer(src, Options{Timeout: 10 * time.Millisecond})
	_, err := a.Acquire(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Acquire() error = %v, want ErrTimeout", err)
	}
}

func TestAcquirerNilSource(t *testing.T) {
	a := NewAcquirer(nil, Options{})
	_, err := a.Acquire(context.Background())
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("Acquire() error = %v, want ErrNotSupported", err)
	}
}

func TestMessagePerFailureClass(t *testing.T) {
	classes := []error{ErrPermissionDenied, ErrPositionUnavailable, ErrTimeout, ErrNotSupported}
	seen := map[string]bool{}
	for _, err := range classes {
		msg := Message(err)
		if msg == "" {
			t.Errorf("Message(%v) is empty", err)
		}
		if seen[msg] {
			t.Errorf("Message(%v) duplicates another class: %q", err, msg)
		}
		seen[msg] = true
	}
	if Message(errors.New("boom")) == "" {
		t.Error("Message(unknown) should fall back to a generic prompt")
	}
}
