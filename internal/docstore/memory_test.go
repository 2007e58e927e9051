package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type note struct {
	Title  string `json:"title"`
	Status string `json:"status"`
	Rank   int    `json:"rank"`
}

func newTestMemory(t *testing.T, opts ...MemoryOption) *Memory {
	t.Helper()
	m, err := NewMemory(opts...)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMemoryCreateGetList(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	ids := map[string]string{}
	for _, n := range []note{{"b", "open", 2}, {"a", "closed", 1}, {"c", "open", 3}} {
		id, err := m.Create(ctx, "notes", n)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids[n.Title] = id
	}

	doc, err := m.Get(ctx, "notes", ids["a"])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got note
	if err := doc.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Title != "a" || got.Rank != 1 {
		t.Errorf("Get returned %+v", got)
	}
	body, _ := doc.Map()
	if _, ok := body["createdAt"]; !ok {
		t.Error("createdAt not stamped")
	}

	open, err := m.List(ctx, "notes", Query{Where: []Filter{Where("status", "open")}, OrderBy: "rank", Desc: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 2 || open[0].ID != ids["c"] || open[1].ID != ids["b"] {
		t.Errorf("List filtered/ordered wrong: %+v", open)
	}

	all, _ := m.List(ctx, "notes", Query{Limit: 2})
	if len(all) != 2 || all[0].ID != ids["b"] {
		t.Errorf("List default order/limit wrong: %+v", all)
	}

	if _, err := m.Get(ctx, "notes", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestMemorySetKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := newTestMemory(t, WithClock(func() time.Time { return clock }))

	if err := m.Set(ctx, "notes", "n1", note{Title: "first"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clock = clock.Add(time.Hour)
	if err := m.Set(ctx, "notes", "n1", note{Title: "second"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	doc, _ := m.Get(ctx, "notes", "n1")
	body, _ := doc.Map()
	if body["createdAt"] != "2024-05-01T10:00:00.000000000Z" {
		t.Errorf("createdAt = %v", body["createdAt"])
	}
	if body["updatedAt"] != "2024-05-01T11:00:00.000000000Z" {
		t.Errorf("updatedAt = %v", body["updatedAt"])
	}
	if body["title"] != "second" {
		t.Errorf("title = %v", body["title"])
	}

	if err := m.Set(ctx, "notes", "n1", Fields{"status": "open"}, true); err != nil {
		t.Fatalf("merge Set: %v", err)
	}
	doc, _ = m.Get(ctx, "notes", "n1")
	body, _ = doc.Map()
	if body["title"] != "second" || body["status"] != "open" {
		t.Errorf("merge lost fields: %v", body)
	}
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := newTestMemory(t, WithClock(func() time.Time { return now }))

	if err := m.Update(ctx, "notes", "nope", Fields{"status": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing = %v, want ErrNotFound", err)
	}
	id, _ := m.Create(ctx, "notes", note{Title: "t", Status: "open"})
	if err := m.Update(ctx, "notes", id, Fields{"status": "closed", "closedAt": ServerTimestamp, "meta.by": "admin"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	doc, _ := m.Get(ctx, "notes", id)
	body, _ := doc.Map()
	if body["status"] != "closed" {
		t.Errorf("status = %v", body["status"])
	}
	if body["closedAt"] != FormatTime(now) {
		t.Errorf("closedAt = %v", body["closedAt"])
	}
	meta, _ := body["meta"].(map[string]any)
	if meta["by"] != "admin" {
		t.Errorf("dotted path not applied: %v", body["meta"])
	}
}

func TestMemoryCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)
	a, _ := m.Create(ctx, "notes", note{Title: "a"})
	b, _ := m.Create(ctx, "notes", note{Title: "b"})

	bad := NewBatch().Delete("notes", a).Update("notes", "ghost", Fields{"status": "x"})
	if err := m.Commit(ctx, bad); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Commit = %v, want ErrNotFound", err)
	}
	if _, err := m.Get(ctx, "notes", a); err != nil {
		t.Errorf("failed batch still deleted %s: %v", a, err)
	}

	good := NewBatch().Delete("notes", a).Update("notes", b, Fields{"status": "done"})
	if err := m.Commit(ctx, good); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := m.Get(ctx, "notes", a); !errors.Is(err, ErrNotFound) {
		t.Errorf("a still present after batch delete")
	}

	big := NewBatch()
	for i := 0; i <= MaxBatchSize; i++ {
		big.Delete("notes", "x")
	}
	if err := m.Commit(ctx, big); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("oversized batch = %v, want ErrBatchTooLarge", err)
	}
}

func nextChange(t *testing.T, feed <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-feed:
		if !ok {
			t.Fatal("feed closed")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func TestMemoryWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newTestMemory(t)

	existing, _ := m.Create(ctx, "notes", note{Title: "old", Status: "pending"})
	_, _ = m.Create(ctx, "notes", note{Title: "other", Status: "done"})

	feed, err := m.Watch(ctx, "notes", []Filter{Where("status", "pending")})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if c := nextChange(t, feed); c.Type != Added || c.Doc.ID != existing {
		t.Fatalf("initial change = %v %s", c.Type, c.Doc.ID)
	}

	fresh, _ := m.Create(ctx, "notes", note{Title: "new", Status: "pending"})
	if c := nextChange(t, feed); c.Type != Added || c.Doc.ID != fresh {
		t.Fatalf("create change = %v %s", c.Type, c.Doc.ID)
	}

	_ = m.Update(ctx, "notes", fresh, Fields{"title": "renamed"})
	if c := nextChange(t, feed); c.Type != Modified || c.Doc.ID != fresh {
		t.Fatalf("modify change = %v %s", c.Type, c.Doc.ID)
	}

	_ = m.Update(ctx, "notes", existing, Fields{"status": "done"})
	if c := nextChange(t, feed); c.Type != Removed || c.Doc.ID != existing {
		t.Fatalf("leave change = %v %s", c.Type, c.Doc.ID)
	}

	cancel()
	select {
	case _, ok := <-feed:
		if ok {
			t.Error("feed delivered after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Error("feed not closed after cancel")
	}
}

func TestMemorySnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	m, err := NewMemory(WithSnapshot(path))
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	if err := m.Set(ctx, "notes", "keep", note{Title: "persisted"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		reopened, err := NewMemory(WithSnapshot(path))
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		doc, err := reopened.Get(ctx, "notes", "keep")
		reopened.Close()
		if err == nil {
			var n note
			_ = doc.Decode(&n)
			if n.Title != "persisted" {
				t.Errorf("title = %q", n.Title)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot never written")
		}
		time.Sleep(20 * time.Millisecond)
	}
	m.Close()
}

func TestReadyWait(t *testing.T) {
	r := NewReady()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait before resolve = %v", err)
	}

	m := newTestMemory(t)
	go r.Resolve(m, nil)
	s, err := r.Wait(context.Background())
	if err != nil || s != Store(m) {
		t.Fatalf("Wait = %v, %v", s, err)
	}
	r.Resolve(nil, errors.New("ignored"))
	if _, err := r.Wait(context.Background()); err != nil {
		t.Errorf("second Resolve changed result: %v", err)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	m, _ := NewMemory()
	m.Close()
	if _, err := m.List(context.Background(), "notes", Query{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("List after Close = %v, want ErrUnavailable", err)
	}
}
