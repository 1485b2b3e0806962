package cache

import (
	"context"
	"errors"
)

// LayeredCache implements a two-level Backend (L1 usually memory, L2 usually Redis).
type LayeredCache struct {
	l1 Backend
	l2 Backend
}

// NewLayeredCache creates a layered cache.
func NewLayeredCache(l1, l2 Backend) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2}
}

func (lc *LayeredCache) Save(ctx context.Context, key string, e Entry) error {
	// Write-through: L2 first, then L1
	if err := lc.l2.Save(ctx, key, e); err != nil {
		return err
	}
	_ = lc.l1.Save(ctx, key, e)
	return nil
}

// Load prefers L1 but consults L2 when L1 misses or holds an older entry
// than another replica may have written.
func (lc *LayeredCache) Load(ctx context.Context, key string) (Entry, error) {
	local, lerr := lc.l1.Load(ctx, key)

	remote, rerr := lc.l2.Load(ctx, key)
	switch {
	case rerr == nil:
		if lerr == nil && !remote.StoredAt.After(local.StoredAt) {
			return local, nil
		}
		_ = lc.l1.Save(ctx, key, remote)
		return remote, nil
	case lerr == nil:
		// L2 unavailable or missing: L1 still answers
		return local, nil
	case errors.Is(rerr, ErrCacheMiss):
		return Entry{}, ErrCacheMiss
	default:
		return Entry{}, rerr
	}
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}
