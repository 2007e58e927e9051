package docstore

import (
	"context"
	"log/slog"
	"sync"
)

// Hub fans committed changes out to Watch subscribers. Each subscriber gets
// its own unbounded queue and pump goroutine so a slow reader never blocks writers.
type Hub struct {
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

type subscriber struct {
	collection string
	where      []Filter
	out        chan Change
	wake       chan struct{}
	done       <-chan struct{}

	mu      sync.Mutex
	pending []Change
}

// Subscribe registers a feed and queues an Added event for every initial document.
// Callers must hold whatever lock serializes their writes so no change slips
// between the initial read and the subscription.
func (h *Hub) Subscribe(ctx context.Context, collection string, where []Filter, initial []Document) <-chan Change {
	s := &subscriber{
		collection: collection,
		where:      where,
		out:        make(chan Change),
		wake:       make(chan struct{}, 1),
		done:       ctx.Done(),
	}
	for _, d := range initial {
		s.pending = append(s.pending, Change{Type: Added, Doc: d})
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = s
	h.mu.Unlock()

	go s.pump()
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}()
	return s.out
}

// Publish reports a committed write. before or after is nil for creates and deletes.
func (h *Hub) Publish(collection string, before, after *Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		return
	}

	var beforeMap, afterMap map[string]any
	if before != nil {
		m, err := before.Map()
		if err != nil {
			slog.Error("Hub: undecodable document", "collection", collection, "id", before.ID, "error", err)
			return
		}
		beforeMap = m
	}
	if after != nil {
		m, err := after.Map()
		if err != nil {
			slog.Error("Hub: undecodable document", "collection", collection, "id", after.ID, "error", err)
			return
		}
		afterMap = m
	}

	for _, s := range h.subs {
		if s.collection != collection {
			continue
		}
		wasIn := beforeMap != nil && Matches(beforeMap, s.where)
		isIn := afterMap != nil && Matches(afterMap, s.where)
		switch {
		case !wasIn && isIn:
			s.push(Change{Type: Added, Doc: *after})
		case wasIn && isIn:
			s.push(Change{Type: Modified, Doc: *after})
		case wasIn && !isIn:
			s.push(Change{Type: Removed, Doc: *before})
		}
	}
}

func (s *subscriber) push(c Change) {
	s.mu.Lock()
	s.pending = append(s.pending, c)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, c := range batch {
			select {
			case s.out <- c:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}
