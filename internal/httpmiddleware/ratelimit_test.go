package httpmiddleware

import (
	"testing"
	"time"
)

func TestSubmitLimiterBurst(t *testing.T) {
	l := NewSubmitLimiter(3, 60)
	for i := 0; i < 3; i++ {
		if !l.take("10.0.0.1") {
			t.Fatalf("request %d rejected inside the burst", i+1)
		}
	}
	if l.take("10.0.0.1") {
		t.Error("request beyond the burst was allowed")
	}
	// Other clients have their own bucket.
	if !l.take("10.0.0.2") {
		t.Error("fresh client rejected")
	}
}

func TestSubmitLimiterRefills(t *testing.T) {
	l := NewSubmitLimiter(1, 600) // 10 tokens/sec
	if !l.take("10.0.0.1") {
		t.Fatal("first request rejected")
	}
	if l.take("10.0.0.1") {
		t.Fatal("burst of 1 allowed a second immediate request")
	}
	time.Sleep(150 * time.Millisecond)
	if !l.take("10.0.0.1") {
		t.Error("bucket did not refill")
	}
}
