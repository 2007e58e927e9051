package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/notify"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/orders"
)

func (h *AdminHandler) ordersList(r *http.Request) *listing.Controller[models.Order] {
	return h.Lists.Orders.Get(adminFrom(r).lists)
}

// ListOrders serves the orders table: q, status, date, sort, page, refresh.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	resp, err := listPage(r, h.ordersList(r), "status", "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportOrders downloads the current filtered view as CSV.
func (h *AdminHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	ctrl := h.ordersList(r)
	if err := ctrl.EnsureLoaded(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := orders.WriteCSV(&buf, ctrl.View()); err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "orders", buf.Bytes())
}

func writeCSV(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"-"+time.Now().Format("2006-01-02")+".csv"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write export", "name", name, "error", err)
	}
}

func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	o, ok := h.ordersList(r).Find(id)
	if !ok {
		var err error
		if o, err = h.Orders.Get(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o, "number": o.Number(), "timeline": o.Timeline()})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), h.ordersList(r), r.PathValue("id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.notify(w, r, "Order status updated to "+status.Label(), notify.LevelSuccess)
	writeJSON(w, http.StatusOK, map[string]any{"order": o, "timeline": o.Timeline()})
}
