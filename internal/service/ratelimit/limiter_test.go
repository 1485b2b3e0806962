package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_EnforcesMinInterval(t *testing.T) {
	t.Parallel()

	l := New(WithInterval("finnhub", 40*time.Millisecond))
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx, "finnhub"))
	}
	// first call is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestAcquire_ProvidersAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(
		WithInterval("slow", time.Hour),
		WithInterval("fast", 0),
	)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "slow"))

	done := make(chan error, 1)
	go func() { done <- l.Acquire(ctx, "fast") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire for a different provider was blocked")
	}
}

func TestAcquire_SerializesConcurrentCallers(t *testing.T) {
	t.Parallel()

	interval := 25 * time.Millisecond
	l := New(WithDefaultInterval(interval))
	ctx := context.Background()

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(ctx, "metals"))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, times, 4)
	first, last := times[0], times[0]
	for _, ts := range times {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 3*interval-5*time.Millisecond)
}

func TestAcquire_CancelledContextLeavesClockUntouched(t *testing.T) {
	t.Parallel()

	l := New(WithInterval("alphavantage", 100*time.Millisecond))
	require.NoError(t, l.Acquire(context.Background(), "alphavantage"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx, "alphavantage")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the next caller only waits for the remainder of the original interval
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), "alphavantage"))
	assert.Less(t, time.Since(start), 95*time.Millisecond)
}

func TestAcquire_ProviderNameIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	l := New(WithIntervals(map[string]time.Duration{"CoinGecko": 30 * time.Millisecond}))
	assert.Equal(t, 30*time.Millisecond, l.Interval("coingecko"))
	assert.Equal(t, time.Duration(0), l.Interval("unknown"))
}

type recordingObserver struct {
	mu    sync.Mutex
	waits map[string]int
}

func (r *recordingObserver) ObserveWait(provider string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waits == nil {
		r.waits = map[string]int{}
	}
	r.waits[provider]++
}

func TestAcquire_ReportsWaits(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	l := New(WithWaitObserver(obs))
	require.NoError(t, l.Acquire(context.Background(), "Finnhub"))
	require.NoError(t, l.Acquire(context.Background(), "finnhub"))
	assert.Equal(t, 2, obs.waits["finnhub"])
}

func TestAllow_TokenBucket(t *testing.T) {
	t.Parallel()

	l := New()
	for i := 0; i < 10; i++ {
		require.Truef(t, l.Allow("session-a", 10, 10.0/3600), "call %d should pass", i)
	}
	assert.False(t, l.Allow("session-a", 10, 10.0/3600))
	assert.True(t, l.Allow("session-b", 10, 10.0/3600))
}
