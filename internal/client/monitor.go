package client

import (
	"context"
	"sync"
	"time"

	"rollcall/internal/geo"
)

// SessionInfo summarizes the session a snapshot belongs to.
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

// LiveStats are the aggregate counters of a snapshot.
type LiveStats struct {
	TotalSubmissions int       `json:"total_submissions"`
	PresentCount     int       `json:"present_count"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Snapshot is one complete live-session view. Every fetch replaces the prior
// snapshot wholesale; the most recent completed fetch wins and nothing guards
// against a slow response landing after a newer one.
type Snapshot struct {
	SessionInfo       SessionInfo      `json:"session_info"`
	RecentSubmissions []LiveSubmission `json:"recent_submissions"`
	LiveStats         LiveStats        `json:"live_stats"`
}

// State is the monitor's rendering state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateErrored
)

// Update is one state transition emitted by the monitor. Errored updates
// carry no snapshot: the prior view is discarded, not kept stale.
type Update struct {
	State    State
	Snapshot *Snapshot
	Err      error
}

// Monitor polls the live view of one session. It fetches immediately on
// Start, then on a fixed cadence while the session is active and auto-refresh
// is on. The cadence is governed only by those two flags; fetch failures do
// not stop the loop. Stop deterministically prevents further fetches but does
// not abort one already in flight.
type Monitor struct {
	client    *Client
	sessionID string
	interval  time.Duration

	mu          sync.Mutex
	autoRefresh bool
	active      bool

	updates   chan Update
	refreshCh chan struct{}
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// DefaultPollInterval is the live view refresh cadence.
const DefaultPollInterval = 10 * time.Second

// NewMonitor creates a monitor for one session. Call Start to begin polling.
func (c *Client) NewMonitor(sessionID string) *Monitor {
	return &Monitor{
		client:      c,
		sessionID:   sessionID,
		interval:    DefaultPollInterval,
		autoRefresh: true,
		active:      true,
		updates:     make(chan Update, 16),
		refreshCh:   make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
	}
}

// SetInterval overrides the poll cadence; only effective before Start.
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// Updates delivers state transitions. Slow readers lose intermediate updates
// rather than stalling the poll loop.
func (m *Monitor) Updates() <-chan Update {
	return m.updates
}

// Start launches the poll loop. Subsequent calls are no-ops.
func (m *Monitor) Start() {
	m.startOnce.Do(func() { go m.loop() })
}

// Stop tears the loop down. In-flight requests are not aborted.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// SetAutoRefresh toggles periodic polling. Manual Refresh still works while
// auto-refresh is off.
func (m *Monitor) SetAutoRefresh(on bool) {
	m.mu.Lock()
	m.autoRefresh = on
	m.mu.Unlock()
}

// Refresh requests one immediate fetch regardless of the cadence flags.
func (m *Monitor) Refresh() {
	select {
	case m.refreshCh <- struct{}{}:
	default:
	}
}

func (m *Monitor) loop() {
	m.fetch()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.refreshCh:
			m.fetch()
		case <-ticker.C:
			if m.shouldPoll() {
				m.fetch()
			}
		}
	}
}

func (m *Monitor) shouldPoll() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoRefresh && m.active
}

func (m *Monitor) fetch() {
	m.emit(Update{State: StateLoading})

	snap, err := m.client.LiveSnapshot(context.Background(), m.sessionID)
	if err != nil {
		m.emit(Update{State: StateErrored, Err: err})
		return
	}

	m.mu.Lock()
	m.active = snap.SessionInfo.IsActive
	m.mu.Unlock()
	m.emit(Update{State: StateLoaded, Snapshot: snap})
}

func (m *Monitor) emit(u Update) {
	select {
	case m.updates <- u:
	default:
	}
}
