package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/sessions"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/auth"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/catalog"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/contact"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/customers"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/dashboard"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/notify"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/orders"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/settings"
)

const msgAdminOnly = "Access denied. Admin privileges required."

// AdminHandler serves the back-office JSON API. Every route except sign-in,
// sign-out and the session check sits behind the admin guard.
type AdminHandler struct {
	SessionStore sessions.Store
	Auth         *auth.Service
	Guard        *auth.Guard
	Authz        *auth.Authorizer
	Dashboard    *dashboard.Service
	Orders       *orders.Service
	Catalog      *catalog.Service
	Customers    *customers.Service
	Contact      *contact.Service
	Settings     *settings.Service
	Inbox        *notify.Inbox
	Toasts       *Toasts
	Notifier     notify.Notifier
	Lists        *AdminLists
	LoginLimiter *RateLimiter
}

func (h *AdminHandler) Register(mux *http.ServeMux) {
	login := h.Login
	if h.LoginLimiter != nil {
		login = h.LoginLimiter.Middleware(login)
	}
	read := func(res string, fn http.HandlerFunc) http.HandlerFunc { return h.require(res, auth.ActionRead, fn) }
	write := func(res string, fn http.HandlerFunc) http.HandlerFunc { return h.require(res, auth.ActionWrite, fn) }

	mux.HandleFunc("POST /admin/login", login)
	mux.HandleFunc("POST /admin/logout", h.Logout)
	mux.HandleFunc("GET /admin/api/session", h.SessionState)
	mux.HandleFunc("GET /admin/api/toasts", read(auth.ResourceDashboard, h.ToastFeed))
	mux.HandleFunc("GET /admin/api/dashboard", read(auth.ResourceDashboard, h.DashboardSummary))

	mux.HandleFunc("GET /admin/api/orders", read(auth.ResourceOrders, h.ListOrders))
	mux.HandleFunc("GET /admin/api/orders/export", read(auth.ResourceOrders, h.ExportOrders))
	mux.HandleFunc("GET /admin/api/orders/{id}", read(auth.ResourceOrders, h.GetOrder))
	mux.HandleFunc("POST /admin/api/orders/{id}/status", write(auth.ResourceOrders, h.UpdateOrderStatus))

	mux.HandleFunc("GET /admin/api/products", read(auth.ResourceProducts, h.ListProducts))
	mux.HandleFunc("POST /admin/api/products", write(auth.ResourceProducts, h.CreateProduct))
	mux.HandleFunc("GET /admin/api/products/{id}", read(auth.ResourceProducts, h.GetProduct))
	mux.HandleFunc("PUT /admin/api/products/{id}", write(auth.ResourceProducts, h.UpdateProduct))
	mux.HandleFunc("DELETE /admin/api/products/{id}", write(auth.ResourceProducts, h.DeleteProduct))
	mux.HandleFunc("POST /admin/api/products/selection", read(auth.ResourceProducts, h.SelectProducts))
	mux.HandleFunc("POST /admin/api/products/bulk-delete", write(auth.ResourceProducts, h.BulkDeleteProducts))
	mux.HandleFunc("POST /admin/api/products/bulk-publish", write(auth.ResourceProducts, h.BulkPublishProducts))

	mux.HandleFunc("GET /admin/api/customers", read(auth.ResourceCustomers, h.ListCustomers))
	mux.HandleFunc("GET /admin/api/customers/export", read(auth.ResourceCustomers, h.ExportCustomers))
	mux.HandleFunc("GET /admin/api/customers/{id}", read(auth.ResourceCustomers, h.GetCustomer))
	mux.HandleFunc("POST /admin/api/customers/{id}/role", write(auth.ResourceUsers, h.SetCustomerRole))

	mux.HandleFunc("GET /admin/api/messages", read(auth.ResourceMessages, h.ListMessages))
	mux.HandleFunc("GET /admin/api/messages/{id}", write(auth.ResourceMessages, h.OpenMessage))
	mux.HandleFunc("DELETE /admin/api/messages/{id}", write(auth.ResourceMessages, h.DeleteMessage))
	mux.HandleFunc("POST /admin/api/messages/selection", read(auth.ResourceMessages, h.SelectMessages))
	mux.HandleFunc("POST /admin/api/messages/mark-all-read", write(auth.ResourceMessages, h.MarkAllMessagesRead))
	mux.HandleFunc("POST /admin/api/messages/delete-selected", write(auth.ResourceMessages, h.DeleteSelectedMessages))

	mux.HandleFunc("GET /admin/api/notifications", read(auth.ResourceNotifications, h.Notifications))
	mux.HandleFunc("POST /admin/api/notifications/read-all", write(auth.ResourceNotifications, h.ReadAllNotifications))
	mux.HandleFunc("POST /admin/api/notifications/{index}/read", write(auth.ResourceNotifications, h.ReadNotification))

	mux.HandleFunc("GET /admin/api/settings", read(auth.ResourceSettings, h.GetSettings))
	mux.HandleFunc("POST /admin/api/settings/store", write(auth.ResourceSettings, h.SaveStoreInfo))
	mux.HandleFunc("POST /admin/api/settings/shipping", write(auth.ResourceSettings, h.SaveShipping))
	mux.HandleFunc("POST /admin/api/settings/password", write(auth.ResourceSettings, h.ChangePassword))
}

func (h *AdminHandler) session(r *http.Request) *sessions.Session {
	s, _ := h.SessionStore.Get(r, AdminSession)
	return s
}

type adminKey struct{}

// adminRequest is what the guard learned about the caller.
type adminRequest struct {
	session *sessions.Session
	uid     string
	role    models.Role
	lists   string
}

func adminFrom(r *http.Request) adminRequest {
	a, _ := r.Context().Value(adminKey{}).(adminRequest)
	return a
}

// require admits admins whose role grants action on resource.
func (h *AdminHandler) require(resource, action string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := h.session(r)
		uid := sessionUser(s)
		state, role, err := h.Guard.Evaluate(r.Context(), uid)
		if err != nil {
			slog.Error("Admin guard failed", "path", r.URL.Path, "error", err)
			writeError(w, r, err)
			return
		}
		switch state {
		case auth.Unauthenticated:
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Please sign in to continue.", Redirect: "/admin/login"})
			return
		case auth.AuthenticatedNonAdmin:
			slog.Warn("Non-admin refused", "user_id", uid, "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, errorResponse{Error: msgAdminOnly, Redirect: "/"})
			return
		}
		if !h.Authz.Allowed(role, resource, action) {
			slog.Warn("Admin action refused", "user_id", uid, "role", string(role), "resource", resource, "action", action)
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "You do not have permission to do that."})
			return
		}

		if _, ok := s.Values[keyListID].(string); !ok {
			listID(s)
			saveSession(w, r, s)
		}
		a := adminRequest{session: s, uid: uid, role: role, lists: listID(s)}
		ctx := withSession(context.WithValue(r.Context(), adminKey{}, a), s)
		next(w, r.WithContext(ctx))
	}
}

// notify queues a toast on the caller's session. Call before writing the body.
func (h *AdminHandler) notify(w http.ResponseWriter, r *http.Request, msg string, level notify.Level) {
	h.Notifier.Notify(r.Context(), msg, level)
	if s := adminFrom(r).session; s != nil {
		saveSession(w, r, s)
	}
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if uid := sessionUser(s); uid != "" {
		if state, _, err := h.Guard.Evaluate(r.Context(), uid); err == nil && state == auth.AuthenticatedAdmin {
			writeJSON(w, http.StatusOK, map[string]string{"redirect": "/admin/dashboard"})
			return
		}
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !models.IsAdminRole(u.Role) {
		slog.Warn("Admin sign-in refused", "user_id", u.ID, "role", string(u.Role))
		writeJSON(w, http.StatusForbidden, errorResponse{Error: msgAdminOnly})
		return
	}

	s.Values[keyUserID] = u.ID
	listID(s)
	s.AddFlash(FlashMessage{Type: string(notify.LevelSuccess), Message: "Welcome back, " + u.FirstName + "!"})
	if err := s.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		writeError(w, r, err)
		return
	}
	slog.Info("Admin signed in", "user_id", u.ID, "role", string(u.Role))
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "redirect": "/admin/dashboard"})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if id, ok := s.Values[keyListID].(string); ok {
		h.Lists.Forget(id)
	}
	delete(s.Values, keyUserID)
	delete(s.Values, keyListID)
	s.Options.MaxAge = -1
	saveSession(w, r, s)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/admin/login"})
}

// SessionState reports the guard's verdict so the admin shell can pick a screen.
func (h *AdminHandler) SessionState(w http.ResponseWriter, r *http.Request) {
	uid := sessionUser(h.session(r))
	state, role, err := h.Guard.Evaluate(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := map[string]any{"state": state.String(), "role": role}
	if state == auth.AuthenticatedAdmin {
		u, err := h.Auth.User(r.Context(), uid)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp["user"] = u
	}
	writeJSON(w, http.StatusOK, resp)
}

// ToastFeed returns this session's flashes plus broadcast toasts newer than ?since.
func (h *AdminHandler) ToastFeed(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	toasts, seq := h.Toasts.Since(since)
	s := adminFrom(r).session
	flashes := GetFlash(s)
	saveSession(w, r, s)
	writeJSON(w, http.StatusOK, map[string]any{"flashes": flashes, "toasts": toasts, "seq": seq})
}

func (h *AdminHandler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Dashboard.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": sum, "unreadNotifications": h.Inbox.Unread()})
}

type notificationView struct {
	models.Notification
	Index   int    `json:"index"`
	TimeAgo string `json:"timeAgo"`
}

func (h *AdminHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	items := h.Inbox.List()
	views := make([]notificationView, len(items))
	for i, n := range items {
		views[i] = notificationView{Notification: n, Index: i, TimeAgo: models.TimeAgo(n.CreatedAt, now)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views, "unread": h.Inbox.Unread()})
}

// ReadNotification marks one notification read and points at what it is about.
func (h *AdminHandler) ReadNotification(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: notification index %q", errBadRequest, r.PathValue("index")))
		return
	}
	n, ok := h.Inbox.MarkRead(i)
	if !ok {
		writeError(w, r, fmt.Errorf("notification %d: %w", i, docstore.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notification": n, "unread": h.Inbox.Unread(), "redirect": n.Link})
}

func (h *AdminHandler) ReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	h.Inbox.MarkAllRead()
	writeJSON(w, http.StatusOK, map[string]int{"unread": 0})
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Settings.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) SaveStoreInfo(w http.ResponseWriter, r *http.Request) {
	var in settings.StoreInfo
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.Settings.SaveStoreInfo(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.notify(w, r, "Store information saved", notify.LevelSuccess)
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) SaveShipping(w http.ResponseWriter, r *http.Request) {
	var in settings.Shipping
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.Settings.SaveShipping(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.notify(w, r, "Shipping settings saved", notify.LevelSuccess)
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	changePassword(w, r, h.Auth, adminFrom(r).uid)
}
