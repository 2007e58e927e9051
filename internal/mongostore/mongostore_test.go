package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
)

func TestBSONRoundTrip(t *testing.T) {
	body, err := docstore.Encode(map[string]any{
		"name":   "Adire Kimono",
		"price":  25000,
		"rating": 4.5,
		"sizes":  []string{"S", "M"},
		"seller": map[string]any{"city": "Lagos"},
		"active": true,
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := toBSON("p1", body)
	if err != nil {
		t.Fatalf("toBSON: %v", err)
	}
	if b["_id"] != "p1" {
		t.Errorf("_id = %v", b["_id"])
	}

	doc, err := fromBSON(b)
	if err != nil {
		t.Fatalf("fromBSON: %v", err)
	}
	if doc.ID != "p1" {
		t.Errorf("ID = %q", doc.ID)
	}
	var got struct {
		Name   string   `json:"name"`
		Price  int      `json:"price"`
		Rating float64  `json:"rating"`
		Sizes  []string `json:"sizes"`
		Seller struct {
			City string `json:"city"`
		} `json:"seller"`
		Active bool `json:"active"`
	}
	if err := doc.Decode(&got); err != nil {
		t.Fatalf("Decode: %v (%s)", err, doc.Data)
	}
	if got.Name != "Adire Kimono" || got.Price != 25000 || got.Rating != 4.5 ||
		len(got.Sizes) != 2 || got.Seller.City != "Lagos" || !got.Active {
		t.Errorf("round trip = %+v", got)
	}
}

func TestToFilter(t *testing.T) {
	f, err := toFilter([]docstore.Filter{docstore.Where("status", "pending"), docstore.Where("read", false)})
	if err != nil {
		t.Fatal(err)
	}
	if len(f) != 2 || f[0].Key != "status" || f[0].Value != "pending" || f[1].Value != false {
		t.Errorf("filter = %+v", f)
	}
}

// Runs against a real replica set when MONGO_TEST_URI is set.
func TestAgainstServer(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	s, err := Connect(ctx, uri, "auranova_test_"+time.Now().Format("150405"))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() {
		_ = s.db.Drop(context.Background())
		s.Close()
	}()

	id, err := s.Create(ctx, "orders", map[string]any{"status": "pending", "total": 5000})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	docs, err := s.List(ctx, "orders", docstore.Query{Where: []docstore.Filter{docstore.Where("status", "pending")}})
	if err != nil || len(docs) != 1 || docs[0].ID != id {
		t.Fatalf("List = %v, %v", docs, err)
	}
	if err := s.Update(ctx, "orders", "ghost", docstore.Fields{"status": "x"}); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Update missing = %v", err)
	}
	batch := docstore.NewBatch().Update("orders", id, docstore.Fields{"status": "shipped"})
	if err := s.Commit(ctx, batch); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	doc, _ := s.Get(ctx, "orders", id)
	body, _ := doc.Map()
	if body["status"] != "shipped" {
		t.Errorf("status = %v", body["status"])
	}
}
