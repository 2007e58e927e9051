package listing

import (
	"sync"
	"time"
)

// Registry keeps one controller per admin session so each browser tab-set
// has its own search, filters, page and selection.
type Registry[T any] struct {
	controllers sync.Map
	newFn       func() *Controller[T]
	ttl         time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

type registryEntry[T any] struct {
	ctrl *Controller[T]

	mu       sync.Mutex
	lastSeen time.Time
}

// NewRegistry creates a registry with a cleanup goroutine that evicts
// controllers idle for longer than ttl.
func NewRegistry[T any](newFn func() *Controller[T], ttl time.Duration) *Registry[T] {
	r := &Registry[T]{
		newFn: newFn,
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go r.cleanup()
	return r
}

// Get returns the session's controller, creating it on first use.
func (r *Registry[T]) Get(session string) *Controller[T] {
	if v, ok := r.controllers.Load(session); ok {
		e := v.(*registryEntry[T])
		e.touch()
		return e.ctrl
	}
	fresh := &registryEntry[T]{ctrl: r.newFn(), lastSeen: time.Now()}
	v, _ := r.controllers.LoadOrStore(session, fresh)
	e := v.(*registryEntry[T])
	e.touch()
	return e.ctrl
}

// Each calls fn for every live controller.
func (r *Registry[T]) Each(fn func(*Controller[T])) {
	r.controllers.Range(func(_, v any) bool {
		fn(v.(*registryEntry[T]).ctrl)
		return true
	})
}

func (r *Registry[T]) Forget(session string) {
	r.controllers.Delete(session)
}

func (r *Registry[T]) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry[T]) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evict(time.Now())
		case <-r.stop:
			return
		}
	}
}

func (r *Registry[T]) evict(now time.Time) {
	r.controllers.Range(func(key, v any) bool {
		e := v.(*registryEntry[T])
		e.mu.Lock()
		idle := now.Sub(e.lastSeen)
		e.mu.Unlock()
		if idle > r.ttl {
			r.controllers.Delete(key)
		}
		return true
	})
}

func (e *registryEntry[T]) touch() {
	e.mu.Lock()
	e.lastSeen = time.Now()
	e.mu.Unlock()
}
