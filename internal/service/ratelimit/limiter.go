package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// gate serializes callers of one provider. last is only touched by the
// holder of slot.
type gate struct {
	slot chan struct{}
	last time.Time
}

// WaitObserver receives how long each Acquire waited.
type WaitObserver interface {
	ObserveWait(provider string, d time.Duration)
}

// Option configures Limiter.
type Option func(*Limiter)

// WithInterval sets the minimum spacing between calls to provider.
func WithInterval(provider string, d time.Duration) Option {
	return func(l *Limiter) {
		l.intervals[strings.ToLower(provider)] = d
	}
}

// WithIntervals sets several provider intervals at once.
func WithIntervals(m map[string]time.Duration) Option {
	return func(l *Limiter) {
		for p, d := range m {
			l.intervals[strings.ToLower(p)] = d
		}
	}
}

// WithDefaultInterval sets the spacing used for providers without an explicit interval.
func WithDefaultInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.defaultInterval = d
	}
}

// WithWaitObserver reports Acquire waits.
func WithWaitObserver(o WaitObserver) Option {
	return func(l *Limiter) {
		l.observer = o
	}
}

// Limiter holds per-provider call clocks and per-key token buckets.
// It is process local and best effort.
type Limiter struct {
	mu              sync.Mutex
	m               map[string]*bucket
	gates           map[string]*gate
	intervals       map[string]time.Duration
	defaultInterval time.Duration
	observer        WaitObserver
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		m:         make(map[string]*bucket),
		gates:     make(map[string]*gate),
		intervals: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until at least the provider's interval has passed since the
// previous successful Acquire for that provider, then records the call.
// Callers for the same provider are served one at a time; other providers are
// never blocked. A cancelled ctx returns its error and leaves the clock untouched.
func (l *Limiter) Acquire(ctx context.Context, provider string) error {
	provider = strings.ToLower(provider)
	g := l.gate(provider)

	start := time.Now()
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.slot }()

	if wait := time.Until(g.last.Add(l.interval(provider))); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	g.last = time.Now()

	if l.observer != nil {
		l.observer.ObserveWait(provider, time.Since(start))
	}
	return nil
}

// Interval returns the configured spacing for provider.
func (l *Limiter) Interval(provider string) time.Duration {
	return l.interval(strings.ToLower(provider))
}

func (l *Limiter) interval(provider string) time.Duration {
	if d, ok := l.intervals[provider]; ok {
		return d
	}
	return l.defaultInterval
}

func (l *Limiter) gate(provider string) *gate {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.gates[provider]
	if !ok {
		g = &gate{slot: make(chan struct{}, 1)}
		l.gates[provider] = g
	}
	return g
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}
