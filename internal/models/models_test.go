package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestProductStockLabels(t *testing.T) {
	tests := []struct {
		stock      int
		label      string
		status     string
		outOfStock bool
	}{
		{-1, "Out of stock", "out-of-stock", true},
		{0, "Out of stock", "out-of-stock", true},
		{1, "Only 1 left", "published", false},
		{5, "Only 5 left", "published", false},
		{6, "In stock", "published", false},
	}
	for _, tt := range tests {
		p := Product{Stock: tt.stock, Status: ProductPublished}
		if got := p.StockLabel(); got != tt.label {
			t.Errorf("stock %d: StockLabel = %q, want %q", tt.stock, got, tt.label)
		}
		if got := p.DisplayStatus(); got != tt.status {
			t.Errorf("stock %d: DisplayStatus = %q, want %q", tt.stock, got, tt.status)
		}
		if got := p.OutOfStock(); got != tt.outOfStock {
			t.Errorf("stock %d: OutOfStock = %v", tt.stock, got)
		}
	}
}

func TestProductReconcile(t *testing.T) {
	p := Product{Stock: 0, InStock: true, Images: []string{"a.jpg", "b.jpg"}}
	p.Reconcile()
	if p.InStock {
		t.Error("inStock should follow stock")
	}
	if p.Image != "a.jpg" {
		t.Errorf("Image = %q", p.Image)
	}
	if p.Status != ProductPublished {
		t.Errorf("Status = %q", p.Status)
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := map[Role]Role{
		"":              RoleCustomer,
		"auranove_user": RoleCustomer,
		RoleCustomer:    RoleCustomer,
		RoleAdmin:       RoleAdmin,
		RoleSuperAdmin:  RoleSuperAdmin,
	}
	for in, want := range tests {
		if got := NormalizeRole(in); got != want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", in, got, want)
		}
	}
	if IsAdminRole("auranove_user") || !IsAdminRole(RoleSuperAdmin) {
		t.Error("IsAdminRole wrong")
	}
}

func TestOrderRecalculateAndNumber(t *testing.T) {
	o := Order{
		ID:       "abcdef123456",
		Delivery: decimal.NewFromInt(2500),
		Items: []OrderItem{
			{Price: decimal.NewFromInt(10000), Quantity: 2},
			{Price: decimal.RequireFromString("1500.50"), Quantity: 1},
		},
	}
	o.Recalculate()
	if !o.Subtotal.Equal(decimal.RequireFromString("21500.50")) {
		t.Errorf("Subtotal = %s", o.Subtotal)
	}
	if !o.Total.Equal(o.Subtotal.Add(o.Delivery)) {
		t.Errorf("Total = %s", o.Total)
	}
	if o.Number() != "ABCDEF12" {
		t.Errorf("Number = %q", o.Number())
	}
	o.OrderNumber = "AUR-XYZ"
	if o.Number() != "AUR-XYZ" {
		t.Errorf("Number = %q", o.Number())
	}
}

func TestOrderTimeline(t *testing.T) {
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	o := Order{Status: StatusShipped, CreatedAt: created}
	o.SetTransitionDate(StatusProcessing, created.Add(time.Hour))
	o.SetTransitionDate(StatusShipped, created.Add(2*time.Hour))
	o.SetTransitionDate(StatusShipped, created.Add(5*time.Hour))

	steps := o.Timeline()
	if len(steps) != 4 {
		t.Fatalf("len = %d", len(steps))
	}
	if !steps[2].Current || !steps[2].Completed || steps[3].Completed {
		t.Errorf("steps = %+v", steps)
	}
	if !steps[2].Date.Equal(created.Add(2 * time.Hour)) {
		t.Errorf("shipped date overwritten: %v", steps[2].Date)
	}

	o.Status = StatusCancelled
	if got := o.Timeline(); len(got) != 1 || got[0].Status != StatusCancelled {
		t.Errorf("cancelled timeline = %+v", got)
	}
}

func TestMoneyEncodesAsNumber(t *testing.T) {
	raw, err := json.Marshal(OrderItem{Price: decimal.NewFromInt(5000), Quantity: 1})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	if _, ok := m["price"].(float64); !ok {
		t.Errorf("price encoded as %T", m["price"])
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{48 * time.Hour, "2 days ago"},
		{10 * 24 * time.Hour, "May 31, 2024"},
	}
	for _, tt := range tests {
		if got := TimeAgo(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("TimeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestFormatNaira(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(0), "₦0"},
		{decimal.NewFromInt(2500), "₦2,500"},
		{decimal.NewFromInt(1250000), "₦1,250,000"},
		{decimal.RequireFromString("12500.5"), "₦12,500.50"},
	}
	for _, tt := range tests {
		if got := FormatNaira(tt.in); got != tt.want {
			t.Errorf("FormatNaira(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
