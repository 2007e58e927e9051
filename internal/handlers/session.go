package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/notify"
)

// Cookie session names. The shop session carries the customer sign-in and the
// basket id; the admin session carries the admin sign-in and list state.
const (
	ShopSession  = "auranova-session"
	AdminSession = "admin-session"

	keyUserID   = "uid"
	keyListID   = "list_id"
	keyBasketID = "basket_id"
)

// GetFlash retrieves flash messages from the session
func GetFlash(session *sessions.Session) []FlashMessage {
	flashes := session.Flashes()
	messages := []FlashMessage{}
	for _, f := range flashes {
		if fm, ok := f.(FlashMessage); ok {
			messages = append(messages, fm)
		}
	}
	return messages
}

func sessionUser(s *sessions.Session) string {
	uid, _ := s.Values[keyUserID].(string)
	return uid
}

// listID returns the id that keys this session's list controllers, minting one if needed.
func listID(s *sessions.Session) string {
	if id, ok := s.Values[keyListID].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	s.Values[keyListID] = id
	return id
}

// errSessionNotSaved means the session cookie could not be written, so
// whatever the request put in it is gone.
var errSessionNotSaved = errors.New("session not saved")

func saveSession(w http.ResponseWriter, r *http.Request, s *sessions.Session) error {
	if err := s.Save(r, w); err != nil {
		slog.Error("Failed to save session", "name", s.Name(), "error", err)
		return errors.Join(errSessionNotSaved, err)
	}
	return nil
}

// The cart and wishlist are stored in the baskets collection. The session
// only carries the basket id.

func basketID(s *sessions.Session) string {
	id, _ := s.Values[keyBasketID].(string)
	return id
}

// ensureBasketID returns the session's basket id, minting one if needed.
func ensureBasketID(s *sessions.Session) string {
	if id := basketID(s); id != "" {
		return id
	}
	id := uuid.NewString()
	s.Values[keyBasketID] = id
	return id
}

const (
	// flashesKey is where gorilla/sessions keeps flashes by default.
	flashesKey       = "_flash"
	maxQueuedFlashes = 5
)

type sessionKey struct{}

func withSession(ctx context.Context, s *sessions.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionNotifier turns notices into session flashes when the context carries
// a session, and hands them to Fallback otherwise.
type SessionNotifier struct {
	Fallback notify.Notifier
}

func (n SessionNotifier) Notify(ctx context.Context, message string, level notify.Level) {
	if s, ok := ctx.Value(sessionKey{}).(*sessions.Session); ok {
		// Unread flashes ride in the cookie; keep only the newest few.
		if queued, ok := s.Values[flashesKey].([]interface{}); ok && len(queued) >= maxQueuedFlashes {
			s.Values[flashesKey] = queued[len(queued)-maxQueuedFlashes+1:]
		}
		s.AddFlash(FlashMessage{Type: string(level), Message: message})
		return
	}
	if n.Fallback != nil {
		n.Fallback.Notify(ctx, message, level)
	}
}

// Toast is a notice broadcast to every admin page.
type Toast struct {
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

const toastBacklog = 20

// Toasts is the admin-wide notice feed. Pages poll it with the last seq they saw.
type Toasts struct {
	mu    sync.Mutex
	seq   int64
	items []Toast
}

func NewToasts() *Toasts {
	return &Toasts{}
}

// Notify queues a toast for every admin and logs it.
func (t *Toasts) Notify(ctx context.Context, message string, level notify.Level) {
	t.mu.Lock()
	t.seq++
	t.items = append(t.items, Toast{Seq: t.seq, Type: string(level), Message: message, CreatedAt: time.Now()})
	if len(t.items) > toastBacklog {
		t.items = t.items[len(t.items)-toastBacklog:]
	}
	t.mu.Unlock()
	notify.LogNotifier{}.Notify(ctx, message, level)
}

// Since returns toasts newer than seq and the latest seq.
func (t *Toasts) Since(seq int64) ([]Toast, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []Toast{}
	for _, it := range t.items {
		if it.Seq > seq {
			out = append(out, it)
		}
	}
	return out, t.seq
}
