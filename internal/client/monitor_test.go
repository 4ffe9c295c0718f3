package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeAuthBlob(t *testing.T, token string) *Credentials {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultStorageFile)
	if err := os.WriteFile(path, []byte(`{"state":{"token":"`+token+`"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	return NewCredentials(path)
}

func snapshotHandler(hits *atomic.Int64, active *atomic.Bool, wantToken string, t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer "+wantToken {
			t.Errorf("Authorization = %q, want Bearer %s", got, wantToken)
		}
		json.NewEncoder(w).Encode(Snapshot{
			SessionInfo: SessionInfo{SessionCode: "4821", IsActive: active.Load(), ExpiresAt: time.Now().Add(time.Hour)},
			LiveStats:   LiveStats{TotalSubmissions: int(hits.Load()), PresentCount: int(hits.Load()), LastUpdated: time.Now()},
		})
	}
}

func settle(hits *atomic.Int64, interval time.Duration) int64 {
	time.Sleep(5 * interval)
	n := hits.Load()
	time.Sleep(5 * interval)
	return hits.Load() - n
}

func TestMonitorPollsOnCadence(t *testing.T) {
	var hits atomic.Int64
	var active atomic.Bool
	active.Store(true)
	srv := httptest.NewServer(snapshotHandler(&hits, &active, "tok", t))
	defer srv.Close()

	c := New(srv.URL, writeAuthBlob(t, "tok"))
	m := c.NewMonitor("sess-1")
	m.SetInterval(20 * time.Millisecond)
	m.Start()
	defer m.Stop()

	// Immediate fetch on activation, then one per tick.
	time.Sleep(10 * time.Millisecond)
	if hits.Load() < 1 {
		t.Fatal("no immediate fetch on Start")
	}
	time.Sleep(110 * time.Millisecond)
	if n := hits.Load(); n < 3 {
		t.Errorf("fetched %d times over ~6 intervals, want several", n)
	}
}

func TestMonitorEmitsLoadingThenLoaded(t *testing.T) {
	var hits atomic.Int64
	var active atomic.Bool
	active.Store(true)
	srv := httptest.NewServer(snapshotHandler(&hits, &active, "tok", t))
	defer srv.Close()

	c := New(srv.URL, writeAuthBlob(t, "tok"))
	m := c.NewMonitor("sess-1")
	m.SetInterval(time.Hour) // only the immediate fetch
	m.Start()
	defer m.Stop()

	first := <-m.Updates()
	if first.State != StateLoading {
		t.Errorf("first update state = %v, want StateLoading", first.State)
	}
	second := <-m.Updates()
	if second.State != StateLoaded {
		t.Fatalf("second update state = %v, want StateLoaded", second.State)
	}
	if second.Snapshot == nil || second.Snapshot.SessionInfo.SessionCode != "4821" {
		t.Errorf("snapshot = %+v, want session code 4821", second.Snapshot)
	}
}

func TestMonitorStopsWhenAutoRefreshOff(t *testing.T) {
	var hits atomic.Int64
	var active atomic.Bool
	active.Store(true)
	srv := httptest.NewServer(snapshotHandler(&hits, &active, "tok", t))
	defer srv.Close()

	c := New(srv.URL, writeAuthBlob(t, "tok"))
	m := c.NewMonitor("sess-1")
	interval := 20 * time.Millisecond
	m.SetInterval(interval)
	m.Start()
	defer m.Stop()

	time.Sleep(50 * time.Millisecond)
	m.SetAutoRefresh(false)
	time.Sleep(2 * interval) // let any in-flight tick drain
	if extra := settle(&hits, interval); extra != 0 {
		t.Errorf("%d fetches after auto-refresh disabled, want 0", extra)
	}

	// Manual refresh still works while auto-refresh is off.
	before := hits.Load()
	m.Refresh()
	time.Sleep(3 * interval)
	if hits.Load() == before {
		t.Error("manual Refresh() issued no fetch")
	}
}

func TestMonitorStopsWhenSessionInactive(t *testing.T) {
	var hits atomic.Int64
	var active atomic.Bool
	active.Store(false) // first snapshot already reports inactive
	srv := httptest.NewServer(snapshotHandler(&hits, &active, "tok", t))
	defer srv.Close()

	c := New(srv.URL, writeAuthBlob(t, "tok"))
	m := c.NewMonitor("sess-1")
	interval := 20 * time.Millisecond
	m.SetInterval(interval)
	m.Start()
	defer m.Stop()

	time.Sleep(2 * interval)
	if extra := settle(&hits, interval); extra != 0 {
		t.Errorf("%d fetches after session went inactive, want 0", extra)
	}
}

func TestMonitorKeepsPollingThroughErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"message": "upstream down"})
	}))
	defer srv.Close()

	c := New(srv.URL, writeAuthBlob(t, "tok"))
	m := c.NewMonitor("sess-1")
	m.SetInterval(20 * time.Millisecond)
	m.Start()
	defer m.Stop()

	var sawError bool
	deadline := time.After(500 * time.Millisecond)
	for !sawError {
		select {
		case u := <-m.Updates():
			if u.State == StateErrored {
				if u.Snapshot != nil {
					t.Error("errored update still carries a snapshot")
				}
				sawError = true
			}
		case <-deadline:
			t.Fatal("no errored update observed")
		}
	}

	// The loop is governed by the flags, not by fetch outcomes.
	before := hits.Load()
	time.Sleep(100 * time.Millisecond)
	if hits.Load() <= before {
		t.Error("polling halted after a failed fetch")
	}
}

func TestMonitorStop(t *testing.T) {
	var hits atomic.Int64
	var active atomic.Bool
	active.Store(true)
	srv := httptest.NewServer(snapshotHandler(&hits, &active, "tok", t))
	defer srv.Close()

	c := New(srv.URL, writeAuthBlob(t, "tok"))
	m := c.NewMonitor("sess-1")
	interval := 20 * time.Millisecond
	m.SetInterval(interval)
	m.Start()

	time.Sleep(50 * time.Millisecond)
	m.Stop()
	time.Sleep(2 * interval)
	if extra := settle(&hits, interval); extra != 0 {
		t.Errorf("%d fetches after Stop(), want 0", extra)
	}
	m.Stop() // idempotent
}
