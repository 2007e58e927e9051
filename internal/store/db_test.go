package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Migrate(Migrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type order struct {
	Status string  `json:"status"`
	Total  float64 `json:"total"`
	Paid   bool    `json:"paid"`
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Migrate(Migrations()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestMigrateRejectsEditedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	v1 := fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE a (x INTEGER);")}}
	if err := s.Migrate(v1); err != nil {
		t.Fatal(err)
	}
	v2 := fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE a (x TEXT);")}}
	if err := s.Migrate(v2); !errors.Is(err, ErrMigrationChanged) {
		t.Errorf("edited migration = %v", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.Create(ctx, "orders", order{Status: "pending", Total: 5000})
	b, _ := s.Create(ctx, "orders", order{Status: "delivered", Total: 12000, Paid: true})
	c, _ := s.Create(ctx, "orders", order{Status: "pending", Total: 7500})

	pending, err := s.List(ctx, "orders", docstore.Query{Where: []docstore.Filter{docstore.Where("status", "pending")}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != a || pending[1].ID != c {
		t.Errorf("pending = %+v", pending)
	}

	paid, _ := s.List(ctx, "orders", docstore.Query{Where: []docstore.Filter{docstore.Where("paid", true)}})
	if len(paid) != 1 || paid[0].ID != b {
		t.Errorf("paid = %+v", paid)
	}

	byTotal, _ := s.List(ctx, "orders", docstore.Query{OrderBy: "total", Desc: true, Limit: 2})
	if len(byTotal) != 2 || byTotal[0].ID != b || byTotal[1].ID != c {
		t.Errorf("byTotal = %+v", byTotal)
	}

	exact, _ := s.List(ctx, "orders", docstore.Query{Where: []docstore.Filter{docstore.Where("total", 7500)}})
	if len(exact) != 1 || exact[0].ID != c {
		t.Errorf("numeric filter = %+v", exact)
	}
}

func TestSetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return clock })

	if err := s.Set(ctx, "settings", "store", docstore.Fields{"storeName": "Auranova"}, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clock = clock.Add(time.Minute)
	if err := s.Set(ctx, "settings", "store", docstore.Fields{"deliveryFee": 3000}, true); err != nil {
		t.Fatalf("merge Set: %v", err)
	}
	doc, err := s.Get(ctx, "settings", "store")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := doc.Map()
	if body["storeName"] != "Auranova" || body["deliveryFee"] == nil {
		t.Errorf("merge result = %v", body)
	}
	if body["createdAt"] != "2024-03-01T09:00:00.000000000Z" {
		t.Errorf("createdAt = %v", body["createdAt"])
	}

	if err := s.Update(ctx, "settings", "missing", docstore.Fields{"x": 1}); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Update missing = %v", err)
	}

	if err := s.Delete(ctx, "settings", "store"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "settings", "store"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
}

func TestCommitRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, _ := s.Create(ctx, "products", map[string]any{"name": "Ankara Dress", "status": "draft"})

	batch := docstore.NewBatch().
		Update("products", id, docstore.Fields{"status": "active"}).
		Update("products", "ghost", docstore.Fields{"status": "active"})
	if err := s.Commit(ctx, batch); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Commit = %v, want ErrNotFound", err)
	}
	doc, _ := s.Get(ctx, "products", id)
	body, _ := doc.Map()
	if body["status"] != "draft" {
		t.Errorf("partial batch applied: status = %v", body["status"])
	}
}

func TestWatchPendingOrders(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t)

	first, _ := s.Create(ctx, "orders", order{Status: "pending"})
	feed, err := s.Watch(ctx, "orders", []docstore.Filter{docstore.Where("status", "pending")})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	expect := func(typ docstore.ChangeType, id string) {
		t.Helper()
		select {
		case c := <-feed:
			if c.Type != typ || c.Doc.ID != id {
				t.Fatalf("got %v %s, want %v %s", c.Type, c.Doc.ID, typ, id)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %v %s", typ, id)
		}
	}

	expect(docstore.Added, first)
	second, _ := s.Create(ctx, "orders", order{Status: "pending"})
	expect(docstore.Added, second)
	_ = s.Update(ctx, "orders", first, docstore.Fields{"status": "processing"})
	expect(docstore.Removed, first)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Create(ctx, "orders", order{Status: "pending"})
	_, _ = s.Create(ctx, "orders", order{Status: "pending"})
	_, _ = s.Create(ctx, "orders", order{Status: "shipped"})
	_, _ = s.Create(ctx, "contact_messages", map[string]any{"read": false})
	_, _ = s.Create(ctx, "contact_messages", map[string]any{"read": true})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Documents["orders"] != 3 || stats.OrdersByStatus["pending"] != 2 || stats.UnreadMessages != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
