// Package notify carries admin notifications: transient toasts, the persistent
// inbox behind the bell icon, and the live feed of new pending orders.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows a short message to whoever is behind ctx.
type Notifier interface {
	Notify(ctx context.Context, message string, level Level)
}

// LogNotifier writes notices to the log. It is the fallback when no session
// is attached to the context.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, message string, level Level) {
	lvl := slog.LevelInfo
	switch level {
	case LevelWarning:
		lvl = slog.LevelWarn
	case LevelError:
		lvl = slog.LevelError
	}
	slog.Log(ctx, lvl, "Notice", "message", message, "level", string(level))
}

// InboxLimit is how many notifications the inbox keeps.
const InboxLimit = 50

// Inbox holds admin notifications newest first.
type Inbox struct {
	mu    sync.Mutex
	items []models.Notification
	now   func() time.Time
}

func NewInbox() *Inbox {
	return &Inbox{now: time.Now}
}

// Add puts n at the front, dropping the oldest past InboxLimit.
func (in *Inbox) Add(n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = in.now()
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items = append([]models.Notification{n}, in.items...)
	if len(in.items) > InboxLimit {
		in.items = in.items[:InboxLimit]
	}
	return n
}

func (in *Inbox) List() []models.Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]models.Notification, len(in.items))
	copy(out, in.items)
	return out
}

func (in *Inbox) Unread() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := 0
	for _, it := range in.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// MarkRead flags the notification at index i and returns it.
func (in *Inbox) MarkRead(i int) (models.Notification, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if i < 0 || i >= len(in.items) {
		return models.Notification{}, false
	}
	in.items[i].Read = true
	return in.items[i], true
}

func (in *Inbox) MarkAllRead() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.items {
		in.items[i].Read = true
	}
}
