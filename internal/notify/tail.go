package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
)

// FreshWindow is how recent an added order must be to count as new.
// Older pending orders show up on subscribe and are not announced.
const FreshWindow = 30 * time.Second

// TailListener follows pending orders and announces the new ones.
type TailListener struct {
	store    docstore.Store
	inbox    *Inbox
	notifier Notifier
	now      func() time.Time
	refresh  *listing.Debouncer

	mu    sync.Mutex
	hooks []func(models.Order)
}

// NewTailListener wires the feed to the inbox. refresh, if set, is called
// (debounced) after each new order, typically to reload lists that
// aggregate orders.
func NewTailListener(store docstore.Store, inbox *Inbox, notifier Notifier, refresh func()) *TailListener {
	l := &TailListener{
		store:    store,
		inbox:    inbox,
		notifier: notifier,
		now:      time.Now,
	}
	if refresh != nil {
		l.refresh = listing.NewDebouncer(listing.DefaultDebounce, refresh)
	}
	return l
}

// OnNewOrder registers fn for every order added to the pending feed.
func (l *TailListener) OnNewOrder(fn func(models.Order)) {
	l.mu.Lock()
	l.hooks = append(l.hooks, fn)
	l.mu.Unlock()
}

// Run subscribes and blocks until ctx ends or the feed closes.
func (l *TailListener) Run(ctx context.Context) error {
	feed, err := l.store.Watch(ctx, models.CollectionOrders, []docstore.Filter{
		docstore.Where("status", models.StatusPending),
	})
	if err != nil {
		return fmt.Errorf("watch pending orders: %w", err)
	}
	if l.refresh != nil {
		defer l.refresh.Stop()
	}
	slog.Info("Listening for new orders")
	for change := range feed {
		if change.Type != docstore.Added {
			continue
		}
		var o models.Order
		if err := change.Doc.Decode(&o); err != nil {
			slog.Error("Failed to decode order from feed", "error", err, "order_id", change.Doc.ID)
			continue
		}
		o.ID = change.Doc.ID
		l.handle(ctx, o)
	}
	return ctx.Err()
}

func (l *TailListener) handle(ctx context.Context, o models.Order) {
	l.mu.Lock()
	hooks := append([]func(models.Order){}, l.hooks...)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(o)
	}

	if l.now().Sub(o.CreatedAt) >= FreshWindow {
		return
	}
	msg := fmt.Sprintf("Order from %s — %s", customerName(o.CustomerInfo), models.FormatNaira(o.Total))
	l.inbox.Add(models.Notification{
		Type:    "new_order",
		Title:   "New Order Received!",
		Message: msg,
		Link:    "/admin/orders/" + o.ID,
		OrderID: o.ID,
	})
	if l.notifier != nil {
		l.notifier.Notify(ctx, "New order received!", LevelSuccess)
	}
	slog.Info("New order", "order_id", o.ID, "total", o.Total.String())
	if l.refresh != nil {
		l.refresh.Trigger()
	}
}

func customerName(c models.CustomerInfo) string {
	if c.FirstName != "" {
		return strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	if c.Email != "" {
		return c.Email
	}
	return "a customer"
}
