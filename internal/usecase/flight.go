package usecase

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// flights coalesces identical loads. A load runs on a context detached from
// the caller that started it and is cancelled only once every waiter has
// given up, so one caller leaving never degrades the answer of the others.
type flights struct {
	group singleflight.Group
	mu    sync.Mutex
	byKey map[string]*flight
}

type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// do returns the shared result for key, or ctx.Err() when the caller stops
// waiting first.
func (fs *flights) do(ctx context.Context, key string, load func(context.Context) interface{}) (interface{}, error) {
	fs.mu.Lock()
	if fs.byKey == nil {
		fs.byKey = make(map[string]*flight)
	}
	f, ok := fs.byKey[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		fs.byKey[key] = f
	}
	f.waiters++
	// under mu so the flight cannot finish between lookup and join
	ch := fs.group.DoChan(key, func() (interface{}, error) {
		v := load(f.ctx)
		fs.mu.Lock()
		if fs.byKey[key] == f {
			delete(fs.byKey, key)
		}
		fs.mu.Unlock()
		f.cancel()
		return v, nil
	})
	fs.mu.Unlock()

	select {
	case r := <-ch:
		fs.leave(key, f)
		return r.Val, nil
	case <-ctx.Done():
		fs.leave(key, f)
		return nil, ctx.Err()
	}
}

func (fs *flights) leave(key string, f *flight) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	if fs.byKey[key] == f {
		delete(fs.byKey, key)
		// later callers start afresh instead of joining the cancelled load
		fs.group.Forget(key)
	}
	f.cancel()
}
