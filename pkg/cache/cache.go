package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Entry is the stored envelope. Entries are never dropped when they expire;
// freshness is decided on read.
type Entry struct {
	Data       json.RawMessage `json:"data"`
	StoredAt   time.Time       `json:"storedAt"`
	TTLSeconds int             `json:"ttlSeconds"`
}

// IsFresh reports whether now is inside the entry's freshness window.
func (e Entry) IsFresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < time.Duration(e.TTLSeconds)*time.Second
}

// Backend is the raw storage behind a Store.
type Backend interface {
	Load(ctx context.Context, key string) (Entry, error)
	Save(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Observer receives cache lookup results ("hit", "stale", "miss", "error").
type Observer interface {
	ObserveCache(result string)
}

// Store exposes fresh/stale reads over any Backend.
type Store struct {
	backend  Backend
	now      func() time.Time
	observer Observer
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	cfg := &StoreConfig{Now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Store{backend: backend, now: cfg.Now, observer: cfg.Observer}
}

// Get decodes the entry for key into dest. stale is true when the entry is past
// its freshness window; dest then still holds the stale value, usable as a
// fallback without a second read. ErrCacheMiss is returned when no entry exists.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	e, err := s.backend.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			s.observe("miss")
		} else {
			s.observe("error")
		}
		return false, err
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		s.observe("error")
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	stale := !e.IsFresh(s.now())
	if stale {
		s.observe("stale")
	} else {
		s.observe("hit")
	}
	return stale, nil
}

// GetStale decodes the entry for key regardless of its age.
func (s *Store) GetStale(ctx context.Context, key string, dest interface{}) error {
	e, err := s.backend.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Set stores value under key, replacing any previous entry. ttl is kept in
// whole seconds, rounded up, so a positive ttl never yields an entry that is
// stale on arrival.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.backend.Save(ctx, key, Entry{
		Data:       data,
		StoredAt:   s.now().UTC(),
		TTLSeconds: ttlSeconds(ttl),
	})
}

// ttlSeconds rounds up to whole seconds.
func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int((ttl + time.Second - 1) / time.Second)
}

// Invalidate removes keys.
func (s *Store) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.backend.Delete(ctx, keys...)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveCache(result)
	}
}

// GetTyped reads key into a new T.
func GetTyped[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	var v T
	stale, err := s.Get(ctx, key, &v)
	return v, stale, err
}
