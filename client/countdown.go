package client

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// countdownThresholds are the remaining-seconds marks that trigger a warning,
// ascending so the smallest threshold still covering the remaining time wins.
var countdownThresholds = []int64{30, 60, 1800, 3600}

// ExpirySource reports the current session expiry, false when unknown.
type ExpirySource func() (time.Time, bool)

// Countdown is the reactive side of expiry tracking: a one-second ticker
// compares now against the session-expires cookie, warns as the remaining
// time crosses descending thresholds, and forces a logout at zero.
//
// The state machine is monotonic: each threshold fires at most once, never
// out of order, and an expired session cannot un-expire.
type Countdown struct {
	expiry   ExpirySource
	warn     func(thresholdSeconds int64)
	onExpire func()
	interval time.Duration
	log      zerolog.Logger
	nowTime  func() time.Time

	mu            sync.Mutex
	fired         map[int64]bool
	lastThreshold int64
	expired       bool
	stop          chan struct{}
	stopOnce      sync.Once
}

// CountdownOption modifies a Countdown during construction.
type CountdownOption func(*Countdown)

// WithCountdownInterval overrides the tick interval (primarily for testing)
func WithCountdownInterval(d time.Duration) CountdownOption {
	return func(c *Countdown) {
		c.interval = d
	}
}

// WithCountdownNowTime sets the now time function (primarily for testing)
func WithCountdownNowTime(nowFunc func() time.Time) CountdownOption {
	return func(c *Countdown) {
		c.nowTime = nowFunc
	}
}

// WithCountdownLogger sets the countdown logger.
func WithCountdownLogger(log zerolog.Logger) CountdownOption {
	return func(c *Countdown) {
		c.log = log
	}
}

func NewCountdown(expiry ExpirySource, warn func(thresholdSeconds int64), onExpire func(), opts ...CountdownOption) *Countdown {
	c := &Countdown{
		expiry:   expiry,
		warn:     warn,
		onExpire: onExpire,
		interval: time.Second,
		log:      zerolog.Nop(),
		nowTime:  time.Now,
		fired:    make(map[int64]bool),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs the ticker until Stop. Call from a goroutine's point of view:
// Start blocks.
func (c *Countdown) Start() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// Stop halts the ticker; used on component teardown and after logout.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// tick evaluates the countdown once.
func (c *Countdown) tick() {
	expiry, ok := c.expiry()
	if !ok {
		return
	}

	c.mu.Lock()
	if c.expired {
		c.mu.Unlock()
		return
	}

	remaining := int64(expiry.Sub(c.nowTime()).Seconds())
	if remaining <= 0 {
		c.expired = true
		c.mu.Unlock()
		c.log.Info().Msg("session expired, forcing logout")
		c.onExpire()
		return
	}

	// Smallest threshold still covering the remaining time.
	var chosen int64
	for _, threshold := range countdownThresholds {
		if threshold >= remaining {
			chosen = threshold
			break
		}
	}
	if chosen == 0 || c.fired[chosen] {
		c.mu.Unlock()
		return
	}
	// Thresholds only fire in descending order as time decreases.
	if c.lastThreshold != 0 && chosen > c.lastThreshold {
		c.mu.Unlock()
		return
	}
	c.fired[chosen] = true
	c.lastThreshold = chosen
	c.mu.Unlock()

	c.log.Info().Int64("threshold", chosen).Int64("remaining", remaining).Msg("session expiry warning")
	c.warn(chosen)
}
