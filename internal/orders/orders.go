// Package orders is the admin side of order handling: the list definition,
// status changes and CSV export.
package orders

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
)

const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortTotalHigh = "total-high"
	SortTotalLow  = "total-low"
)

// ListConfig describes the admin orders list.
func ListConfig(pageSize int, fetch func(context.Context) ([]models.Order, error), now func() time.Time) listing.Config[models.Order] {
	byCreated := listing.ByTime(func(o models.Order) time.Time { return o.CreatedAt })
	return listing.Config[models.Order]{
		Name:     "orders",
		PageSize: pageSize,
		ID:       func(o models.Order) string { return o.ID },
		Fetch:    fetch,
		SearchFields: func(o models.Order) []string {
			return []string{o.Number(), o.CustomerInfo.FirstName, o.CustomerInfo.LastName, o.CustomerInfo.Email}
		},
		Filters: map[string]listing.FilterFunc[models.Order]{
			"status": func(o models.Order, v string, _ time.Time) bool {
				return string(o.Status) == v
			},
			// Orders without a timestamp are never hidden by the date filter.
			"date": func(o models.Order, v string, now time.Time) bool {
				return o.CreatedAt.IsZero() || listing.InDateBucket(o.CreatedAt, v, now)
			},
		},
		Sorts: map[string]func(a, b models.Order) int{
			SortNewest:    listing.Reverse(byCreated),
			SortOldest:    byCreated,
			SortTotalHigh: func(a, b models.Order) int { return b.Total.Cmp(a.Total) },
			SortTotalLow:  func(a, b models.Order) int { return a.Total.Cmp(b.Total) },
		},
		DefaultSort: SortNewest,
		Now:         now,
	}
}

// StatusMailer tells the customer about a status change.
type StatusMailer interface {
	OrderStatusChanged(ctx context.Context, o models.Order) error
}

type Service struct {
	repos  *repository.Repos
	mailer StatusMailer
	now    func() time.Time
}

func NewService(repos *repository.Repos, mailer StatusMailer) *Service {
	return &Service{repos: repos, mailer: mailer, now: time.Now}
}

// Get fetches one order for the detail page.
func (s *Service) Get(ctx context.Context, id string) (models.Order, error) {
	return s.repos.Orders.Get(ctx, id)
}

// UpdateStatus writes the new status and patches ctrl once the write succeeds.
// On failure ctrl is left as it was.
func (s *Service) UpdateStatus(ctx context.Context, ctrl *listing.Controller[models.Order], id string, status models.OrderStatus) (models.Order, error) {
	current, ok := ctrl.Find(id)
	if !ok {
		var err error
		if current, err = s.repos.Orders.Get(ctx, id); err != nil {
			return models.Order{}, err
		}
	}
	if current.Status == status {
		return current, nil
	}

	now := s.now()
	var updated models.Order
	err := ctrl.Mutate(ctx, []string{id}, func(ctx context.Context) error {
		var err error
		updated, err = s.repos.Orders.UpdateStatus(ctx, current, status, now)
		return err
	}, func(o *models.Order) {
		o.Status = status
		o.SetTransitionDate(status, now)
		o.UpdatedAt = now
	})
	if err != nil {
		return models.Order{}, err
	}
	slog.Info("Order status updated", "order_id", id, "status", string(status))

	if s.mailer != nil {
		if err := s.mailer.OrderStatusChanged(ctx, updated); err != nil {
			slog.Error("Failed to send status email", "order_id", id, "error", err)
		}
	}
	return updated, nil
}

// ErrNoOrders is returned by WriteCSV when there is nothing to export.
var ErrNoOrders = errors.New("no orders to export")

var csvHeader = []string{"Order ID", "Customer", "Email", "Date", "Items", "Total", "Status", "Payment Method"}

// WriteCSV exports orders in view order.
func WriteCSV(w io.Writer, orders []models.Order) error {
	if len(orders) == 0 {
		return ErrNoOrders
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range orders {
		date := ""
		if !o.CreatedAt.IsZero() {
			date = o.CreatedAt.Format("Jan 2, 2006 3:04 PM")
		}
		row := []string{
			o.Number(),
			strings.TrimSpace(o.CustomerInfo.FirstName + " " + o.CustomerInfo.LastName),
			o.CustomerInfo.Email,
			date,
			strconv.Itoa(len(o.Items)),
			models.FormatNaira(o.Total),
			string(o.Status),
			o.PaymentMethod.Label(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
