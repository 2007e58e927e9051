package notify

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
)

func TestInboxCapAndOrder(t *testing.T) {
	in := NewInbox()
	for i := 0; i < InboxLimit+5; i++ {
		in.Add(models.Notification{Title: string(rune('a' + i%26))})
	}
	items := in.List()
	if len(items) != InboxLimit {
		t.Fatalf("len = %d, want %d", len(items), InboxLimit)
	}
	last := in.Add(models.Notification{Title: "latest"})
	if got := in.List()[0]; got.ID != last.ID || got.Title != "latest" {
		t.Errorf("front = %+v, want latest", got)
	}
	if in.Unread() != InboxLimit {
		t.Errorf("unread = %d", in.Unread())
	}
	if _, ok := in.MarkRead(0); !ok {
		t.Fatal("MarkRead(0) failed")
	}
	if _, ok := in.MarkRead(InboxLimit); ok {
		t.Error("MarkRead out of range succeeded")
	}
	if in.Unread() != InboxLimit-1 {
		t.Errorf("unread after MarkRead = %d", in.Unread())
	}
	in.MarkAllRead()
	if in.Unread() != 0 {
		t.Errorf("unread after MarkAllRead = %d", in.Unread())
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) Notify(_ context.Context, msg string, _ Level) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTailListenerAnnouncesOnlyFreshOrders(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	clock := now.Add(-time.Hour)
	setClock := func(t time.Time) {
		clockMu.Lock()
		clock = t
		clockMu.Unlock()
	}
	mem, err := docstore.NewMemory(docstore.WithClock(func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close()
	repos := repository.New(mem)
	ctx := context.Background()

	old, err := repos.Orders.Create(ctx, models.Order{Status: models.StatusPending, Total: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatal(err)
	}
	setClock(now.Add(-5 * time.Second))
	fresh, err := repos.Orders.Create(ctx, models.Order{
		Status:       models.StatusPending,
		Total:        decimal.NewFromInt(27500),
		CustomerInfo: models.CustomerInfo{FirstName: "Ada", LastName: "Obi"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repos.Orders.Create(ctx, models.Order{Status: models.StatusDelivered}); err != nil {
		t.Fatal(err)
	}

	// The orders page already shows the old order.
	ctrl := listing.NewController(listing.Config[models.Order]{
		Name:  "orders",
		ID:    func(o models.Order) string { return o.ID },
		Fetch: func(context.Context) ([]models.Order, error) { return []models.Order{old}, nil },
	})
	if err := ctrl.Load(ctx); err != nil {
		t.Fatal(err)
	}

	inbox := NewInbox()
	notes := &recordingNotifier{}
	var refreshes atomic.Int32
	l := NewTailListener(mem, inbox, notes, func() { refreshes.Add(1) })
	l.now = func() time.Time { return now }
	var hooked atomic.Int32
	l.OnNewOrder(func(o models.Order) {
		hooked.Add(1)
		ctrl.Upsert(o)
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- l.Run(runCtx) }()

	waitFor(t, "initial pending orders", func() bool { return hooked.Load() == 2 })
	waitFor(t, "debounced refresh", func() bool { return refreshes.Load() == 1 })

	items := inbox.List()
	if len(items) != 1 {
		t.Fatalf("inbox has %d notifications, want 1", len(items))
	}
	if items[0].OrderID != fresh.ID || items[0].Type != "new_order" {
		t.Errorf("notification = %+v", items[0])
	}
	if !strings.Contains(items[0].Message, "Ada Obi") || !strings.Contains(items[0].Message, "₦27,500") {
		t.Errorf("message = %q", items[0].Message)
	}
	if got := len(ctrl.Snapshot()); got != 2 {
		t.Errorf("controller holds %d orders, want 2 (no duplicate of the old one)", got)
	}

	// A later status change drops the order from the feed without a new announcement.
	if _, err := repos.Orders.UpdateStatus(ctx, fresh, models.StatusProcessing, now); err != nil {
		t.Fatal(err)
	}
	setClock(now)
	if _, err := repos.Orders.Create(ctx, models.Order{Status: models.StatusPending}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "second new order", func() bool { return inbox.Unread() == 2 })
	if hooked.Load() != 3 {
		t.Errorf("hooks ran %d times, want 3", hooked.Load())
	}
	if got := inbox.List()[0].Message; !strings.Contains(got, "a customer") {
		t.Errorf("anonymous message = %q", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	notes.mu.Lock()
	defer notes.mu.Unlock()
	if len(notes.msgs) != 2 {
		t.Errorf("toasts = %v", notes.msgs)
	}
}

func TestCustomerName(t *testing.T) {
	tests := []struct {
		in   models.CustomerInfo
		want string
	}{
		{models.CustomerInfo{FirstName: "Ada", LastName: "Obi"}, "Ada Obi"},
		{models.CustomerInfo{FirstName: "Ada"}, "Ada"},
		{models.CustomerInfo{Email: "a@b.co"}, "a@b.co"},
		{models.CustomerInfo{}, "a customer"},
	}
	for _, tt := range tests {
		if got := customerName(tt.in); got != tt.want {
			t.Errorf("customerName(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
