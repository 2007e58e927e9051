package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/catalog"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/contact"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/customers"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/notify"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/orders"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
)

type PageSizes struct {
	Orders    int
	Products  int
	Customers int
	Messages  int
}

// AdminLists holds every admin session's list controllers, keyed by the
// session's list id.
type AdminLists struct {
	Orders    *listing.Registry[models.Order]
	Products  *listing.Registry[models.Product]
	Customers *listing.Registry[customers.Customer]
	Messages  *listing.Registry[models.ContactMessage]
}

func NewAdminLists(repos *repository.Repos, cs *customers.Service, sizes PageSizes, ttl time.Duration) *AdminLists {
	return &AdminLists{
		Orders: listing.NewRegistry(func() *listing.Controller[models.Order] {
			return listing.NewController(orders.ListConfig(sizes.Orders, repos.Orders.All, time.Now))
		}, ttl),
		Products: listing.NewRegistry(func() *listing.Controller[models.Product] {
			return listing.NewController(catalog.ListConfig(sizes.Products, repos.Products.All, time.Now))
		}, ttl),
		Customers: listing.NewRegistry(func() *listing.Controller[customers.Customer] {
			return listing.NewController(customers.ListConfig(sizes.Customers, cs.Load, time.Now))
		}, ttl),
		Messages: listing.NewRegistry(func() *listing.Controller[models.ContactMessage] {
			return listing.NewController(contact.ListConfig(sizes.Messages, repos.Messages.All, time.Now))
		}, ttl),
	}
}

// OnNewOrder puts a freshly placed order at the top of every loaded orders list.
func (l *AdminLists) OnNewOrder(o models.Order) {
	l.Orders.Each(func(c *listing.Controller[models.Order]) {
		c.Upsert(o)
	})
}

// RefreshCustomers refetches every loaded customers list so order counts and
// spend include orders placed since it was loaded.
func (l *AdminLists) RefreshCustomers() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	l.Customers.Each(func(c *listing.Controller[customers.Customer]) {
		if err := c.Reload(ctx); err != nil {
			slog.Error("Failed to refresh customers list", "error", err)
		}
	})
}

func (l *AdminLists) Forget(id string) {
	l.Orders.Forget(id)
	l.Products.Forget(id)
	l.Customers.Forget(id)
	l.Messages.Forget(id)
}

func (l *AdminLists) Close() {
	l.Orders.Close()
	l.Products.Close()
	l.Customers.Close()
	l.Messages.Close()
}

func (h *AdminHandler) customersList(r *http.Request) *listing.Controller[customers.Customer] {
	return h.Lists.Customers.Get(adminFrom(r).lists)
}

func (h *AdminHandler) messagesList(r *http.Request) *listing.Controller[models.ContactMessage] {
	return h.Lists.Messages.Get(adminFrom(r).lists)
}

// ListCustomers serves the customers table with the summary cards.
func (h *AdminHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	ctrl := h.customersList(r)
	resp, err := listPage(r, ctrl)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"list":  resp,
		"stats": customers.ComputeStats(ctrl.Snapshot(), time.Now()),
	})
}

func (h *AdminHandler) ExportCustomers(w http.ResponseWriter, r *http.Request) {
	ctrl := h.customersList(r)
	if err := ctrl.EnsureLoaded(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := customers.WriteCSV(&buf, ctrl.View()); err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "customers", buf.Bytes())
}

func (h *AdminHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Customers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer": c})
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) SetCustomerRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, role := r.PathValue("id"), models.Role(req.Role)
	if err := h.Customers.SetRole(r.Context(), h.customersList(r), id, role); err != nil {
		writeError(w, r, err)
		return
	}
	h.notify(w, r, "Role updated", notify.LevelSuccess)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "role": role})
}

// ListMessages serves the inbox: q, tab, sort, page, refresh.
func (h *AdminHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctrl := h.messagesList(r)
	resp, err := listPage(r, ctrl, "tab")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": resp, "unread": contact.Unread(ctrl.Snapshot())})
}

// OpenMessage returns a message and marks it read.
func (h *AdminHandler) OpenMessage(w http.ResponseWriter, r *http.Request) {
	ctrl := h.messagesList(r)
	m, err := h.Contact.Open(r.Context(), ctrl, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": m, "unread": contact.Unread(ctrl.Snapshot())})
}

func (h *AdminHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Contact.Delete(r.Context(), h.messagesList(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.notify(w, r, "Message deleted", notify.LevelSuccess)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *AdminHandler) SelectMessages(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selected": applySelection(h.messagesList(r), req)})
}

func (h *AdminHandler) MarkAllMessagesRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Contact.MarkAllRead(r.Context(), h.messagesList(r))
	h.bulkResult(w, r, n, err, "%d messages marked as read", "No unread messages")
}

func (h *AdminHandler) DeleteSelectedMessages(w http.ResponseWriter, r *http.Request) {
	n, err := h.Contact.DeleteSelected(r.Context(), h.messagesList(r))
	h.bulkResult(w, r, n, err, "%d messages deleted", "No messages selected")
}
