package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
)

func newRepos(t *testing.T) (*Repos, *docstore.Memory) {
	t.Helper()
	m, err := docstore.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return New(m), m
}

func TestOrdersUpdateStatusRecordsFirstTransition(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepos(t)

	o, err := r.Orders.Create(ctx, models.Order{Status: models.StatusPending, Total: decimal.NewFromInt(5000)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.ID == "" || o.CreatedAt.IsZero() {
		t.Fatalf("created order missing id/createdAt: %+v", o)
	}

	first := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	o, err = r.Orders.UpdateStatus(ctx, o, models.StatusShipped, first)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	o, _ = r.Orders.UpdateStatus(ctx, o, models.StatusProcessing, first.Add(time.Hour))
	o, _ = r.Orders.UpdateStatus(ctx, o, models.StatusShipped, first.Add(2*time.Hour))

	stored, err := r.Orders.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != models.StatusShipped {
		t.Errorf("Status = %q", stored.Status)
	}
	if stored.ShippedDate == nil || !stored.ShippedDate.Equal(first) {
		t.Errorf("ShippedDate = %v, want %v", stored.ShippedDate, first)
	}
	if stored.ProcessingDate == nil {
		t.Error("ProcessingDate not set")
	}

	if _, err := r.Orders.UpdateStatus(ctx, models.Order{ID: "ghost"}, models.StatusShipped, first); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("missing order = %v", err)
	}
}

func TestUsersCustomersIncludesLegacyRole(t *testing.T) {
	ctx := context.Background()
	r, m := newRepos(t)
	_ = m.Set(ctx, models.CollectionUsers, "u1", models.User{Email: "a@x.com", Role: "auranove_user"}, false)
	_ = m.Set(ctx, models.CollectionUsers, "u2", models.User{Email: "b@x.com", Role: models.RoleCustomer}, false)
	_ = m.Set(ctx, models.CollectionUsers, "u3", models.User{Email: "c@x.com", Role: models.RoleAdmin}, false)

	customers, err := r.Users.Customers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(customers) != 2 {
		t.Errorf("customers = %d, want 2", len(customers))
	}

	role, _ := r.Users.Role(ctx, "u3")
	if role != models.RoleAdmin {
		t.Errorf("Role = %q", role)
	}
	role, _ = r.Users.Role(ctx, "nobody")
	if role != models.RoleCustomer {
		t.Errorf("Role for missing profile = %q", role)
	}

	u, _ := r.Users.FindByEmail(ctx, " B@x.com ")
	if u == nil || u.ID != "u2" {
		t.Errorf("FindByEmail = %+v", u)
	}
}

func TestSettingsDefaultsAndMerge(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepos(t)

	s, err := r.Settings.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !s.DeliveryFee.Equal(decimal.NewFromInt(2500)) || !s.FreeShippingThreshold.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("defaults = %+v", s)
	}

	if err := r.Settings.Merge(ctx, docstore.Fields{"storeName": "Auranova", "deliveryFee": 3000}); err != nil {
		t.Fatal(err)
	}
	if err := r.Settings.Merge(ctx, docstore.Fields{"storePhone": "08012345678"}); err != nil {
		t.Fatal(err)
	}
	s, _ = r.Settings.Load(ctx)
	if s.StoreName != "Auranova" || s.StorePhone != "08012345678" || !s.DeliveryFee.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("merged = %+v", s)
	}
}

func TestDeleteManyChunks(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepos(t)
	var ids []string
	for i := 0; i < docstore.MaxBatchSize+3; i++ {
		p, err := r.Products.Save(ctx, models.Product{Name: "p", Stock: 1})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, p.ID)
	}
	if err := r.Products.DeleteMany(ctx, ids); err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	left, _ := r.Products.All(ctx)
	if len(left) != 0 {
		t.Errorf("%d products left", len(left))
	}
}

func TestMessagesMarkAllRead(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepos(t)
	a, _ := r.Messages.Create(ctx, models.ContactMessage{Name: "Ada", Subject: "Hi"})
	b, _ := r.Messages.Create(ctx, models.ContactMessage{Name: "Bola", Subject: "Yo"})

	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	if err := r.Messages.MarkAllRead(ctx, []string{a.ID, b.ID}, now); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Messages.Get(ctx, b.ID)
	if !got.Read || got.ReadAt == nil || !got.ReadAt.Equal(now) {
		t.Errorf("message = %+v", got)
	}
}
