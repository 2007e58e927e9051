package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. One goroutine owns every collection and
// callers reach it through the command channel, so no locks guard the data.
// An optional snapshot path makes it survive restarts.
type Memory struct {
	commands        chan command
	closed          chan struct{}
	closeOnce       sync.Once
	persistRequests chan []byte
	snapshotPath    string
	hub             *Hub
	now             func() time.Time

	// owned by loop
	collections map[string]*collection
}

type collection struct {
	order []string
	docs  map[string]map[string]any
}

type command struct {
	run   func() error
	reply chan error
}

type MemoryOption func(*Memory)

// WithClock replaces time.Now for server timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithSnapshot persists every mutation to a JSON file at path.
func WithSnapshot(path string) MemoryOption {
	return func(m *Memory) { m.snapshotPath = path }
}

// NewMemory starts the store goroutines. Close stops them.
func NewMemory(opts ...MemoryOption) (*Memory, error) {
	m := &Memory{
		commands:        make(chan command, 32),
		closed:          make(chan struct{}),
		persistRequests: make(chan []byte, 1),
		hub:             NewHub(),
		now:             time.Now,
		collections:     make(map[string]*collection),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.snapshotPath != "" {
		if err := m.readSnapshot(); err != nil {
			return nil, err
		}
	}
	go m.loop()
	go m.persistenceLoop()
	return m, nil
}

func (m *Memory) loop() {
	for {
		select {
		case cmd := <-m.commands:
			cmd.reply <- cmd.run()
		case <-m.closed:
			return
		}
	}
}

// exec runs fn on the store goroutine and waits for it.
func (m *Memory) exec(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case m.commands <- command{run: fn, reply: reply}:
	case <-m.closed:
		return ErrUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-m.closed:
		return ErrUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) coll(name string) *collection {
	c, ok := m.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]map[string]any)}
		m.collections[name] = c
	}
	return c
}

func (m *Memory) List(ctx context.Context, name string, q Query) ([]Document, error) {
	var out []Document
	err := m.exec(ctx, func() error {
		c := m.coll(name)
		type row struct {
			id  string
			doc map[string]any
		}
		var rows []row
		for _, id := range c.order {
			doc := c.docs[id]
			if Matches(doc, q.Where) {
				rows = append(rows, row{id, doc})
			}
		}
		if q.OrderBy != "" {
			sort.SliceStable(rows, func(i, j int) bool {
				a, _ := lookup(rows[i].doc, q.OrderBy)
				b, _ := lookup(rows[j].doc, q.OrderBy)
				if q.Desc {
					return compareValues(b, a) < 0
				}
				return compareValues(a, b) < 0
			})
		}
		if q.Limit > 0 && len(rows) > q.Limit {
			rows = rows[:q.Limit]
		}
		out = make([]Document, 0, len(rows))
		for _, r := range rows {
			raw, err := Marshal(r.doc)
			if err != nil {
				return err
			}
			out = append(out, Document{ID: r.id, Data: raw})
		}
		return nil
	})
	return out, err
}

func (m *Memory) Get(ctx context.Context, name, id string) (Document, error) {
	var out Document
	err := m.exec(ctx, func() error {
		doc, ok := m.coll(name).docs[id]
		if !ok {
			return ErrNotFound
		}
		raw, err := Marshal(doc)
		if err != nil {
			return err
		}
		out = Document{ID: id, Data: raw}
		return nil
	})
	return out, err
}

func (m *Memory) Create(ctx context.Context, name string, data any) (string, error) {
	id := uuid.NewString()
	err := m.exec(ctx, func() error {
		doc, err := PrepareCreate(data, m.now())
		if err != nil {
			return err
		}
		m.put(name, id, doc)
		m.queuePersist()
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Set(ctx context.Context, name, id string, data any, merge bool) error {
	return m.exec(ctx, func() error {
		if err := m.applySet(name, id, data, merge); err != nil {
			return err
		}
		m.queuePersist()
		return nil
	})
}

func (m *Memory) Update(ctx context.Context, name, id string, fields Fields) error {
	return m.exec(ctx, func() error {
		if err := m.applyUpdate(name, id, fields); err != nil {
			return err
		}
		m.queuePersist()
		return nil
	})
}

func (m *Memory) Delete(ctx context.Context, name, id string) error {
	return m.exec(ctx, func() error {
		m.applyDelete(name, id)
		m.queuePersist()
		return nil
	})
}

func (m *Memory) Commit(ctx context.Context, b *Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return m.exec(ctx, func() error {
		// Dry run against the key sets first so a failing op leaves nothing applied.
		exists := func(coll, id string) bool {
			_, ok := m.coll(coll).docs[id]
			return ok
		}
		overlay := map[string]bool{}
		for _, op := range b.Ops {
			key := op.Collection + "/" + op.ID
			present, seen := overlay[key]
			if !seen {
				present = exists(op.Collection, op.ID)
			}
			switch op.Kind {
			case OpSet:
				if _, err := Encode(op.Data); err != nil {
					return err
				}
				overlay[key] = true
			case OpUpdate:
				if !present {
					return fmt.Errorf("update %s: %w", key, ErrNotFound)
				}
				if err := ApplyUpdate(map[string]any{}, op.Fields, m.now()); err != nil {
					return err
				}
			case OpDelete:
				overlay[key] = false
			default:
				return fmt.Errorf("docstore: unknown op kind %d", op.Kind)
			}
		}
		for _, op := range b.Ops {
			var err error
			switch op.Kind {
			case OpSet:
				err = m.applySet(op.Collection, op.ID, op.Data, op.Merge)
			case OpUpdate:
				err = m.applyUpdate(op.Collection, op.ID, op.Fields)
			case OpDelete:
				m.applyDelete(op.Collection, op.ID)
			}
			if err != nil {
				return err
			}
		}
		m.queuePersist()
		return nil
	})
}

func (m *Memory) Watch(ctx context.Context, name string, where []Filter) (<-chan Change, error) {
	var feed <-chan Change
	err := m.exec(ctx, func() error {
		c := m.coll(name)
		var initial []Document
		for _, id := range c.order {
			doc := c.docs[id]
			if !Matches(doc, where) {
				continue
			}
			raw, err := Marshal(doc)
			if err != nil {
				return err
			}
			initial = append(initial, Document{ID: id, Data: raw})
		}
		feed = m.hub.Subscribe(ctx, name, where, initial)
		return nil
	})
	return feed, err
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *Memory) applySet(name, id string, data any, merge bool) error {
	c := m.coll(name)
	existing := c.docs[id]
	before := m.snapshotDoc(id, existing)
	var base map[string]any
	if existing != nil {
		base = cloneMap(existing)
	}
	doc, err := PrepareSet(base, data, merge, m.now())
	if err != nil {
		return err
	}
	m.put(name, id, doc)
	if before != nil {
		m.hub.Publish(name, before, m.snapshotDoc(id, doc))
	}
	return nil
}

func (m *Memory) applyUpdate(name, id string, fields Fields) error {
	c := m.coll(name)
	existing, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	before := m.snapshotDoc(id, existing)
	next := cloneMap(existing)
	if err := ApplyUpdate(next, fields, m.now()); err != nil {
		return err
	}
	c.docs[id] = next
	m.hub.Publish(name, before, m.snapshotDoc(id, next))
	return nil
}

func (m *Memory) applyDelete(name, id string) {
	c := m.coll(name)
	existing, ok := c.docs[id]
	if !ok {
		return
	}
	before := m.snapshotDoc(id, existing)
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	m.hub.Publish(name, before, nil)
}

// put inserts or replaces a document, publishing a create when it is new.
func (m *Memory) put(name, id string, doc map[string]any) {
	c := m.coll(name)
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
		c.docs[id] = doc
		m.hub.Publish(name, nil, m.snapshotDoc(id, doc))
		return
	}
	c.docs[id] = doc
}

func (m *Memory) snapshotDoc(id string, doc map[string]any) *Document {
	if doc == nil {
		return nil
	}
	raw, err := Marshal(doc)
	if err != nil {
		slog.Error("Memory store: marshal failed", "id", id, "error", err)
		return nil
	}
	return &Document{ID: id, Data: raw}
}

type memorySnapshot struct {
	Collections map[string][]snapshotDoc `json:"collections"`
}

type snapshotDoc struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// queuePersist hands the current state to the background writer without blocking.
func (m *Memory) queuePersist() {
	if m.snapshotPath == "" {
		return
	}
	snap := memorySnapshot{Collections: map[string][]snapshotDoc{}}
	for name, c := range m.collections {
		for _, id := range c.order {
			raw, err := Marshal(c.docs[id])
			if err != nil {
				continue
			}
			snap.Collections[name] = append(snap.Collections[name], snapshotDoc{ID: id, Data: raw})
		}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Memory store: snapshot encode failed", "error", err)
		return
	}
	select {
	case m.persistRequests <- payload:
	default:
		// Replace the stale pending snapshot with the newest one.
		select {
		case <-m.persistRequests:
		default:
		}
		m.persistRequests <- payload
	}
}

func (m *Memory) persistenceLoop() {
	for {
		select {
		case payload := <-m.persistRequests:
			if err := writeFileAtomic(m.snapshotPath, payload); err != nil {
				slog.Error("Memory store: snapshot write failed", "path", m.snapshotPath, "error", err)
			}
		case <-m.closed:
			return
		}
	}
}

func (m *Memory) readSnapshot() error {
	payload, err := os.ReadFile(m.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap memorySnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	for name, docs := range snap.Collections {
		c := m.coll(name)
		for _, d := range docs {
			doc, err := decodeMap(d.Data)
			if err != nil {
				return fmt.Errorf("decode snapshot doc %s/%s: %w", name, d.ID, err)
			}
			c.order = append(c.order, d.ID)
			c.docs[d.ID] = doc
		}
	}
	return nil
}

func writeFileAtomic(path string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cloneMap(src map[string]any) map[string]any {
	raw, err := json.Marshal(src)
	if err != nil {
		return src
	}
	out, err := decodeMap(raw)
	if err != nil {
		return src
	}
	return out
}

// compareValues orders numbers numerically and everything else by its string form.
func compareValues(a, b any) int {
	an, aok := asFloat(a)
	bn, bok := asFloat(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	if a == nil && b != nil {
		return -1
	}
	if b == nil && a != nil {
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
