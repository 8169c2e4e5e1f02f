package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefreshIntervalIsHalfLifeMinusMargin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewSessionManager(nil, WithManagerNowTime(func() time.Time { return now }))

	// 10 minutes out: half of that minus the 10s margin.
	require.Equal(t, 4*time.Minute+50*time.Second, m.interval(now.Add(10*time.Minute)))

	// Nearly expired sessions hit the floor instead of spinning.
	require.Equal(t, minRefreshInterval, m.interval(now.Add(3*time.Second)))
	require.Equal(t, minRefreshInterval, m.interval(now.Add(-time.Minute)))
}

func TestManagerRefreshesAndReschedules(t *testing.T) {
	var calls atomic.Int32
	refresh := func(ctx context.Context) (time.Time, error) {
		calls.Add(1)
		// Keep the cadence short: half-life minus margin stays negative, so
		// the floor applies.
		return time.Now().Add(time.Second), nil
	}

	m := NewSessionManager(refresh, WithMinInterval(20*time.Millisecond))
	m.Start(time.Now().Add(time.Second))
	defer m.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 },
		time.Second, 5*time.Millisecond, "each refresh must schedule the next")
}

func TestManagerSingleTimer(t *testing.T) {
	var calls atomic.Int32
	refresh := func(ctx context.Context) (time.Time, error) {
		calls.Add(1)
		return time.Now().Add(time.Hour), nil
	}

	m := NewSessionManager(refresh, WithMinInterval(30*time.Millisecond))
	// Repeated scheduling must collapse to one pending timer, not stack up.
	for i := 0; i < 5; i++ {
		m.Reschedule(time.Now().Add(time.Millisecond))
	}
	defer m.Stop()

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
}

func TestManagerStop(t *testing.T) {
	var calls atomic.Int32
	refresh := func(ctx context.Context) (time.Time, error) {
		calls.Add(1)
		return time.Now().Add(time.Hour), nil
	}

	m := NewSessionManager(refresh, WithMinInterval(20*time.Millisecond))
	m.Start(time.Now())
	m.Stop()

	time.Sleep(80 * time.Millisecond)
	require.Zero(t, calls.Load())
}

func TestManagerSuspendParksTheSchedule(t *testing.T) {
	var calls atomic.Int32
	refresh := func(ctx context.Context) (time.Time, error) {
		calls.Add(1)
		return time.Now().Add(time.Hour), nil
	}

	m := NewSessionManager(refresh, WithMinInterval(20*time.Millisecond))
	m.Start(time.Now())
	m.Suspend()

	time.Sleep(80 * time.Millisecond)
	require.Zero(t, calls.Load(), "a suspended manager must not refresh")
}

func TestManagerResumeRefreshesImmediately(t *testing.T) {
	var calls atomic.Int32
	refresh := func(ctx context.Context) (time.Time, error) {
		calls.Add(1)
		return time.Now().Add(time.Hour), nil
	}

	m := NewSessionManager(refresh)
	m.Suspend()
	m.Resume(context.Background())
	defer m.Stop()

	require.Equal(t, int32(1), calls.Load(), "resume treats the session like a cold start")
}

func TestManagerRetriesAfterRefreshFailure(t *testing.T) {
	var calls atomic.Int32
	refresh := func(ctx context.Context) (time.Time, error) {
		calls.Add(1)
		return time.Time{}, errors.New("gateway unreachable")
	}

	m := NewSessionManager(refresh, WithMinInterval(20*time.Millisecond))
	m.Start(time.Now())
	defer m.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 },
		time.Second, 5*time.Millisecond, "failures keep the previous cadence instead of giving up")
}
