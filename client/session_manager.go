package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// refreshSafetyMargin is subtracted from the half-life interval so the
	// refresh lands comfortably before expiry.
	refreshSafetyMargin = 10 * time.Second
	// minRefreshInterval keeps a nearly-expired session from refreshing in a
	// tight loop.
	minRefreshInterval = 5 * time.Second
)

// RefreshFunc performs one silent refresh and returns the renewed session
// expiry.
type RefreshFunc func(ctx context.Context) (time.Time, error)

// SessionManager owns the proactive refresh timer. Exactly one timer is live
// per manager: scheduling always cancels the previous timer first, and every
// successful refresh reschedules from the new expiry so the schedule tracks
// the current token set instead of drifting.
//
// Suspend parks the timer while the application is not visible; Resume
// treats a long-backgrounded application the same as a cold start and
// refreshes immediately.
type SessionManager struct {
	mu           sync.Mutex
	timer        *time.Timer
	lastInterval time.Duration
	suspended    bool
	refresh      RefreshFunc
	log          zerolog.Logger
	nowTime      func() time.Time
	minInterval  time.Duration
}

// SessionManagerOption modifies a SessionManager during construction.
type SessionManagerOption func(*SessionManager)

// WithManagerLogger sets the manager logger.
func WithManagerLogger(log zerolog.Logger) SessionManagerOption {
	return func(m *SessionManager) {
		m.log = log
	}
}

// WithManagerNowTime sets the now time function (primarily for testing)
func WithManagerNowTime(nowFunc func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		m.nowTime = nowFunc
	}
}

// WithMinInterval overrides the interval floor (primarily for testing)
func WithMinInterval(d time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		m.minInterval = d
	}
}

func NewSessionManager(refresh RefreshFunc, opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		refresh:     refresh,
		log:         zerolog.Nop(),
		nowTime:     time.Now,
		minInterval: minRefreshInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start schedules the recurring refresh from the given session expiry.
func (m *SessionManager) Start(expiry time.Time) {
	m.Reschedule(expiry)
}

// Reschedule replaces any active timer with one computed from the given
// expiry: half the remaining lifetime minus a safety margin.
func (m *SessionManager) Reschedule(expiry time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduleLocked(m.interval(expiry))
}

// Stop cancels the timer entirely, for logout or teardown.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.suspended = false
}

// Suspend parks the refresh schedule. Background applications should not
// burn refresh calls.
func (m *SessionManager) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.suspended = true
}

// Resume forces an immediate refresh attempt and re-establishes the
// schedule from its result.
func (m *SessionManager) Resume(ctx context.Context) {
	m.mu.Lock()
	m.suspended = false
	m.mu.Unlock()
	m.fire(ctx)
}

func (m *SessionManager) interval(expiry time.Time) time.Duration {
	interval := expiry.Sub(m.nowTime())/2 - refreshSafetyMargin
	if interval < m.minInterval {
		interval = m.minInterval
	}
	return interval
}

// scheduleLocked arms the single timer; the caller holds the lock.
func (m *SessionManager) scheduleLocked(interval time.Duration) {
	m.stopLocked()
	m.lastInterval = interval
	m.timer = time.AfterFunc(interval, func() {
		m.fire(context.Background())
	})
}

func (m *SessionManager) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *SessionManager) fire(ctx context.Context) {
	m.mu.Lock()
	if m.suspended {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	expiry, err := m.refresh(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("scheduled refresh failed")
		m.mu.Lock()
		if !m.suspended {
			// Keep trying on the previous cadence; a later attempt may find
			// the gateway reachable again.
			retryIn := m.lastInterval
			if retryIn < m.minInterval {
				retryIn = m.minInterval
			}
			m.scheduleLocked(retryIn)
		}
		m.mu.Unlock()
		return
	}
	m.Reschedule(expiry)
}
