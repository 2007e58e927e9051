package docstore

import (
	"context"
	"sync"
)

// Ready is a one-shot future resolved when the store connection is usable.
// Request handlers wait on it instead of polling.
type Ready struct {
	once  sync.Once
	done  chan struct{}
	store Store
	err   error
}

func NewReady() *Ready {
	return &Ready{done: make(chan struct{})}
}

// Resolve settles the future. Only the first call has any effect.
func (r *Ready) Resolve(s Store, err error) {
	r.once.Do(func() {
		r.store = s
		r.err = err
		close(r.done)
	})
}

// Wait blocks until Resolve is called or ctx ends.
func (r *Ready) Wait(ctx context.Context) (Store, error) {
	select {
	case <-r.done:
		return r.store, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the future resolves.
func (r *Ready) Done() <-chan struct{} {
	return r.done
}
