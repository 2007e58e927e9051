// Package customers joins customer profiles with their orders for the admin views.
package customers

import (
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
)

const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortName   = "name"
	SortOrders = "orders"
	SortSpent  = "spent"
)

// Customer is a customer profile with its order totals.
type Customer struct {
	models.User
	TotalOrders int             `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	Orders      []models.Order  `json:"orders,omitempty"`
}

// Aggregate attaches each user's orders, matched on userId. Orders keep their input order.
func Aggregate(users []models.User, orders []models.Order) []Customer {
	byUser := make(map[string][]models.Order)
	for _, o := range orders {
		if o.UserID != "" {
			byUser[o.UserID] = append(byUser[o.UserID], o)
		}
	}
	out := make([]Customer, 0, len(users))
	for _, u := range users {
		c := Customer{User: u, TotalSpent: decimal.Zero, Orders: byUser[u.ID]}
		c.TotalOrders = len(c.Orders)
		for _, o := range c.Orders {
			c.TotalSpent = c.TotalSpent.Add(o.Total)
		}
		out = append(out, c)
	}
	return out
}

type Stats struct {
	Total             int             `json:"total"`
	NewThisMonth      int             `json:"newThisMonth"`
	Active            int             `json:"active"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

// ComputeStats summarizes cs. The average is over all orders and rounded to the naira.
func ComputeStats(cs []Customer, now time.Time) Stats {
	s := Stats{Total: len(cs), AverageOrderValue: decimal.Zero}
	spent := decimal.Zero
	orders := 0
	y, m, _ := now.Date()
	for _, c := range cs {
		if cy, cm, _ := c.CreatedAt.Date(); !c.CreatedAt.IsZero() && cy == y && cm == m {
			s.NewThisMonth++
		}
		if c.TotalOrders > 0 {
			s.Active++
		}
		orders += c.TotalOrders
		spent = spent.Add(c.TotalSpent)
	}
	if orders > 0 {
		s.AverageOrderValue = spent.Div(decimal.NewFromInt(int64(orders))).Round(0)
	}
	return s
}

// ListConfig describes the admin customers list. "most-orders" and
// "highest-spend" are accepted as older names for the orders and spent sorts.
func ListConfig(pageSize int, fetch func(context.Context) ([]Customer, error), now func() time.Time) listing.Config[Customer] {
	byCreated := listing.ByTime(func(c Customer) time.Time { return c.CreatedAt })
	byOrders := func(a, b Customer) int { return cmp.Compare(b.TotalOrders, a.TotalOrders) }
	bySpent := func(a, b Customer) int { return b.TotalSpent.Cmp(a.TotalSpent) }
	return listing.Config[Customer]{
		Name:     "customers",
		PageSize: pageSize,
		ID:       func(c Customer) string { return c.ID },
		Fetch:    fetch,
		SearchFields: func(c Customer) []string {
			return []string{c.FullName(), c.Email, c.Phone}
		},
		Sorts: map[string]func(a, b Customer) int{
			SortNewest:      listing.Reverse(byCreated),
			SortOldest:      byCreated,
			SortName:        listing.ByName(func(c Customer) string { return c.FullName() }),
			SortOrders:      byOrders,
			"most-orders":   byOrders,
			SortSpent:       bySpent,
			"highest-spend": bySpent,
		},
		DefaultSort: SortNewest,
		Now:         now,
	}
}

type Service struct {
	repos *repository.Repos
}

func NewService(repos *repository.Repos) *Service {
	return &Service{repos: repos}
}

// Load fetches customers and orders and joins them.
func (s *Service) Load(ctx context.Context) ([]Customer, error) {
	users, err := s.repos.Users.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	orders, err := s.repos.Orders.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customer orders: %w", err)
	}
	return Aggregate(users, orders), nil
}

// Get loads one customer with their order history, newest first.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	u, err := s.repos.Users.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	orders, err := s.repos.Orders.ForUser(ctx, id)
	if err != nil {
		return Customer{}, fmt.Errorf("load orders for %s: %w", id, err)
	}
	return Aggregate([]models.User{u}, orders)[0], nil
}

// SetRole changes a user's role. Promoted users leave the customers list;
// everyone else is patched in place.
func (s *Service) SetRole(ctx context.Context, ctrl *listing.Controller[Customer], id string, role models.Role) error {
	switch role {
	case models.RoleCustomer, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRole, role)
	}
	write := func(ctx context.Context) error {
		return s.repos.Users.SetRole(ctx, id, role)
	}
	if role != models.RoleCustomer {
		return ctrl.Remove(ctx, []string{id}, write)
	}
	return ctrl.Mutate(ctx, []string{id}, write, func(c *Customer) { c.Role = role })
}

// ErrInvalidRole rejects roles outside customer, admin and super_admin.
var ErrInvalidRole = errors.New("invalid role")

// ErrNoCustomers is returned by WriteCSV when there is nothing to export.
var ErrNoCustomers = errors.New("no customers to export")

var csvHeader = []string{"Name", "Email", "Phone", "Total Orders", "Total Spent", "Joined Date"}

func WriteCSV(w io.Writer, cs []Customer) error {
	if len(cs) == 0 {
		return ErrNoCustomers
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range cs {
		joined := ""
		if !c.CreatedAt.IsZero() {
			joined = c.CreatedAt.Format("Jan 2, 2006")
		}
		row := []string{
			strings.TrimSpace(c.FullName()),
			c.Email,
			c.Phone,
			strconv.Itoa(c.TotalOrders),
			models.FormatNaira(c.TotalSpent),
			joined,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
