package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingObserver struct {
	mu      sync.Mutex
	results map[string]int
}

func (o *countingObserver) ObserveCache(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[string]int)
	}
	o.results[result]++
}

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestStore_SetThenGetIsFresh(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewStore(NewMemoryCache(), WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", payload{Name: "AAPL", Value: 190.5}, time.Minute))

	var got payload
	stale, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, payload{Name: "AAPL", Value: 190.5}, got)
}

func TestStore_SubSecondTTLRoundsUp(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewStore(NewMemoryCache(), WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", payload{Name: "BTC"}, 300*time.Millisecond))

	var got payload
	stale, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, stale, "a positive ttl must not be stale on arrival")

	clock.Advance(time.Second)
	stale, err = store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, "BTC", got.Name)
}

func TestTTLSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Nanosecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Hour, 3600},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ttlSeconds(tt.ttl), tt.ttl.String())
	}
}

func TestStore_ExpiredEntryIsStaleButRetained(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewStore(NewMemoryCache(), WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", payload{Name: "WTI", Value: 71.2}, 30*time.Second))

	// Exactly at the ttl boundary the entry is no longer fresh.
	clock.Advance(30 * time.Second)

	var got payload
	stale, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, "WTI", got.Name)

	clock.Advance(30 * 24 * time.Hour)
	var old payload
	require.NoError(t, store.GetStale(ctx, "k", &old))
	assert.Equal(t, 71.2, old.Value)
}

func TestStore_MissIsDistinctFromStale(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryCache())
	var got payload
	stale, err := store.Get(context.Background(), "absent", &got)
	require.ErrorIs(t, err, ErrCacheMiss)
	assert.False(t, stale)
	require.ErrorIs(t, store.GetStale(context.Background(), "absent", &got), ErrCacheMiss)
}

func TestStore_SetIsIdempotent(t *testing.T) {
	t.Parallel()

	mem := NewMemoryCache()
	store := NewStore(mem)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Set(ctx, "k", payload{Name: "BTC", Value: 1}, time.Minute))
	}
	assert.Equal(t, 1, mem.Len())

	var got payload
	_, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, "BTC", got.Name)
}

func TestStore_Invalidate(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryCache())
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "a", payload{Name: "a"}, time.Minute))
	require.NoError(t, store.Set(ctx, "b", payload{Name: "b"}, time.Minute))

	require.NoError(t, store.Invalidate(ctx, "a"))

	var got payload
	_, err := store.Get(ctx, "a", &got)
	require.ErrorIs(t, err, ErrCacheMiss)
	_, err = store.Get(ctx, "b", &got)
	require.NoError(t, err)
}

func TestStore_ObserverCountsResults(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	obs := &countingObserver{}
	store := NewStore(NewMemoryCache(), WithClock(clock.Now), WithObserver(obs))
	ctx := context.Background()

	var got payload
	_, _ = store.Get(ctx, "k", &got)
	require.NoError(t, store.Set(ctx, "k", payload{}, time.Second))
	_, _ = store.Get(ctx, "k", &got)
	clock.Advance(2 * time.Second)
	_, _ = store.Get(ctx, "k", &got)

	assert.Equal(t, map[string]int{"miss": 1, "hit": 1, "stale": 1}, obs.results)
}

func TestGetTyped(t *testing.T) {
	t.Parallel()

	store := NewStore(NewMemoryCache())
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []float64{1, 2, 3}, time.Minute))

	got, stale, err := GetTyped[[]float64](ctx, store, "k")
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	mem := NewMemoryCache(WithMemoryMaxSize(2))
	ctx := context.Background()

	require.NoError(t, mem.Save(ctx, "a", Entry{Data: []byte(`1`)}))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, mem.Save(ctx, "b", Entry{Data: []byte(`2`)}))
	time.Sleep(2 * time.Millisecond)
	_, err := mem.Load(ctx, "a")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, mem.Save(ctx, "c", Entry{Data: []byte(`3`)}))

	_, err = mem.Load(ctx, "b")
	require.ErrorIs(t, err, ErrCacheMiss)
	_, err = mem.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, mem.Len())
}

type failingBackend struct{ err error }

func (f failingBackend) Load(context.Context, string) (Entry, error) { return Entry{}, f.err }
func (f failingBackend) Save(context.Context, string, Entry) error  { return f.err }
func (f failingBackend) Delete(context.Context, ...string) error    { return f.err }
func (f failingBackend) Close() error                               { return nil }

func TestLayeredCache_ReadsThroughToL2(t *testing.T) {
	t.Parallel()

	l1, l2 := NewMemoryCache(), NewMemoryCache()
	layered := NewLayeredCache(l1, l2)
	ctx := context.Background()

	stored := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, l2.Save(ctx, "k", Entry{Data: []byte(`"v"`), StoredAt: stored, TTLSeconds: 60}))

	e, err := layered.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, stored, e.StoredAt)

	// promoted into L1
	_, err = l1.Load(ctx, "k")
	require.NoError(t, err)
}

func TestLayeredCache_PrefersNewerL2Entry(t *testing.T) {
	t.Parallel()

	l1, l2 := NewMemoryCache(), NewMemoryCache()
	layered := NewLayeredCache(l1, l2)
	ctx := context.Background()

	older := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)
	require.NoError(t, l1.Save(ctx, "k", Entry{Data: []byte(`"old"`), StoredAt: older}))
	require.NoError(t, l2.Save(ctx, "k", Entry{Data: []byte(`"new"`), StoredAt: newer}))

	e, err := layered.Load(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `"new"`, string(e.Data))
}

func TestLayeredCache_L1AnswersWhenL2Down(t *testing.T) {
	t.Parallel()

	l1 := NewMemoryCache()
	down := errors.New("connection refused")
	layered := NewLayeredCache(l1, failingBackend{err: down})
	ctx := context.Background()

	require.NoError(t, l1.Save(ctx, "k", Entry{Data: []byte(`1`)}))
	_, err := layered.Load(ctx, "k")
	require.NoError(t, err)

	_, err = layered.Load(ctx, "missing")
	require.ErrorIs(t, err, down)

	require.ErrorIs(t, layered.Save(ctx, "x", Entry{Data: []byte(`1`)}), down)
}

func TestGenerateKeyWithParams(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "candles:stock:AAPL:1M", GenerateKeyWithParams("candles", "stock", "AAPL", "1M"))
	assert.Equal(t, "news:oil", GenerateKeyWithParams("news", "oil", ""))
	assert.Equal(t, "news:stock:AAPL:20", GenerateKeyWithParams("news", "stock", "AAPL", 20))
}
