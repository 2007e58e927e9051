package customers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
)

var now = time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC)

func fixtures() ([]models.User, []models.Order) {
	users := []models.User{
		{ID: "u1", FirstName: "Zainab", LastName: "Bello", Email: "zainab@x.co", Phone: "08031234567", CreatedAt: now.AddDate(0, 0, -3)},
		{ID: "u2", FirstName: "Ade", LastName: "Okafor", Email: "ade@x.co", CreatedAt: now.AddDate(0, -2, 0)},
		{ID: "u3", FirstName: "chika", Email: "chika@x.co", CreatedAt: now.AddDate(-1, 0, 0)},
	}
	orders := []models.Order{
		{ID: "o1", UserID: "u1", Total: decimal.NewFromInt(10000)},
		{ID: "o2", UserID: "u1", Total: decimal.NewFromInt(5000)},
		{ID: "o3", UserID: "u2", Total: decimal.NewFromInt(2501)},
		{ID: "o4", Total: decimal.NewFromInt(99999)},
	}
	return users, orders
}

func TestAggregateAndStats(t *testing.T) {
	cs := Aggregate(fixtures())
	if len(cs) != 3 {
		t.Fatalf("got %d customers", len(cs))
	}
	if cs[0].TotalOrders != 2 || !cs[0].TotalSpent.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("u1 = %d orders, %s", cs[0].TotalOrders, cs[0].TotalSpent)
	}
	if cs[2].TotalOrders != 0 || !cs[2].TotalSpent.IsZero() {
		t.Errorf("u3 = %+v", cs[2])
	}

	s := ComputeStats(cs, now)
	if s.Total != 3 || s.NewThisMonth != 1 || s.Active != 2 {
		t.Errorf("stats = %+v", s)
	}
	// (10000 + 5000 + 2501) / 3 = 5833.67
	if !s.AverageOrderValue.Equal(decimal.NewFromInt(5834)) {
		t.Errorf("average = %s", s.AverageOrderValue)
	}
	if empty := ComputeStats(nil, now); !empty.AverageOrderValue.IsZero() {
		t.Errorf("empty average = %s", empty.AverageOrderValue)
	}
}

func TestListConfigSorts(t *testing.T) {
	cs := Aggregate(fixtures())
	ctrl := listing.NewController(ListConfig(15, func(context.Context) ([]Customer, error) {
		return cs, nil
	}, func() time.Time { return now }))
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		cr   listing.Criteria
		want string
	}{
		{listing.Criteria{}, "[u1 u2 u3]"},
		{listing.Criteria{Sort: SortOldest}, "[u3 u2 u1]"},
		{listing.Criteria{Sort: SortName}, "[u2 u3 u1]"},
		{listing.Criteria{Sort: "most-orders"}, "[u1 u2 u3]"},
		{listing.Criteria{Sort: SortSpent}, "[u1 u2 u3]"},
		{listing.Criteria{Query: "0803"}, "[u1]"},
		{listing.Criteria{Query: "okafor"}, "[u2]"},
	}
	for _, tt := range tests {
		var ids []string
		for _, c := range ctrl.Apply(tt.cr).Items {
			ids = append(ids, c.ID)
		}
		if got := fmt.Sprint(ids); got != tt.want {
			t.Errorf("%+v: got %s, want %s", tt.cr, got, tt.want)
		}
	}
}

func TestServiceGet(t *testing.T) {
	mem, err := docstore.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close()
	repos := repository.New(mem)
	ctx := context.Background()

	if err := repos.Users.Set(ctx, "u1", models.User{Email: "a@x.co", Role: "auranove_user"}, false); err != nil {
		t.Fatal(err)
	}
	if err := repos.Users.Set(ctx, "admin", models.User{Email: "b@x.co", Role: models.RoleAdmin}, false); err != nil {
		t.Fatal(err)
	}
	for _, total := range []int64{100, 250} {
		if _, err := repos.Orders.Create(ctx, models.Order{UserID: "u1", Total: decimal.NewFromInt(total)}); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewService(repos)
	c, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != "u1" || c.TotalOrders != 2 || !c.TotalSpent.Equal(decimal.NewFromInt(350)) {
		t.Errorf("customer = %+v", c)
	}

	all, err := svc.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("Load returned %d, want only the customer", len(all))
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("missing = %v", err)
	}
}

func TestSetRole(t *testing.T) {
	mem, err := docstore.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close()
	repos := repository.New(mem)
	ctx := context.Background()
	for _, id := range []string{"u1", "u2"} {
		if err := repos.Users.Set(ctx, id, models.User{Email: id + "@x.co", Role: models.RoleCustomer}, false); err != nil {
			t.Fatal(err)
		}
	}
	svc := NewService(repos)
	ctrl := listing.NewController(ListConfig(15, svc.Load, time.Now))
	if err := ctrl.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if err := svc.SetRole(ctx, ctrl, "u1", "owner"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("unknown role = %v", err)
	}
	if err := svc.SetRole(ctx, ctrl, "u1", models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if _, ok := ctrl.Find("u1"); ok {
		t.Error("promoted user still listed as a customer")
	}
	if role, _ := repos.Users.Role(ctx, "u1"); role != models.RoleAdmin {
		t.Errorf("stored role = %s", role)
	}
	if err := svc.SetRole(ctx, ctrl, "missing", models.RoleCustomer); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("missing user = %v", err)
	}
	if len(ctrl.Snapshot()) != 1 {
		t.Errorf("snapshot = %d", len(ctrl.Snapshot()))
	}
}

func TestWriteCSV(t *testing.T) {
	if err := WriteCSV(&bytes.Buffer{}, nil); !errors.Is(err, ErrNoCustomers) {
		t.Errorf("empty = %v", err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Aggregate(fixtures())[:1]); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := "[[Name Email Phone Total Orders Total Spent Joined Date] [Zainab Bello zainab@x.co 08031234567 2 ₦15,000 Jun 17, 2024]]"
	if got := fmt.Sprint(rows); got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}
