// Package dashboard computes the admin overview from orders, products and customers.
package dashboard

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
)

const (
	recentLimit = 5
	topLimit    = 5
)

type TopProduct struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Sales     int    `json:"sales"`
}

type LowStockItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Label     string `json:"label"`
}

// Summary is the dashboard payload. TopProducts is empty when nothing has sold yet.
type Summary struct {
	TotalOrders    int             `json:"totalOrders"`
	Revenue        decimal.Decimal `json:"revenue"`
	RevenueLabel   string          `json:"revenueLabel"`
	TotalProducts  int             `json:"totalProducts"`
	TotalCustomers int             `json:"totalCustomers"`
	RecentOrders   []models.Order  `json:"recentOrders"`
	TopProducts    []TopProduct    `json:"topProducts"`
	LowStock       []LowStockItem  `json:"lowStock"`
	PendingOrders  int             `json:"pendingOrders"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

// Compute builds the overview. customers must already be filtered to the customer role.
func Compute(orders []models.Order, products []models.Product, customers []models.User, now time.Time) Summary {
	s := Summary{
		TotalOrders:    len(orders),
		Revenue:        decimal.Zero,
		TotalProducts:  len(products),
		TotalCustomers: len(customers),
		GeneratedAt:    now,
	}

	sales := make(map[string]int)
	for _, o := range orders {
		s.Revenue = s.Revenue.Add(o.Total)
		if o.Status == models.StatusPending {
			s.PendingOrders++
		}
		for _, it := range o.Items {
			if it.ProductID == "" {
				continue
			}
			q := it.Quantity
			if q <= 0 {
				q = 1
			}
			sales[it.ProductID] += q
		}
	}
	s.RevenueLabel = models.FormatNaira(s.Revenue)

	recent := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if !o.CreatedAt.IsZero() {
			recent = append(recent, o)
		}
	}
	slices.SortStableFunc(recent, func(a, b models.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	s.RecentOrders = recent[:min(recentLimit, len(recent))]

	top := make([]TopProduct, 0, len(products))
	for _, p := range products {
		name := p.Name
		if name == "" {
			name = "Unknown"
		}
		top = append(top, TopProduct{ProductID: p.ID, Name: name, Image: p.PrimaryImage(), Sales: sales[p.ID]})
	}
	slices.SortStableFunc(top, func(a, b TopProduct) int { return cmp.Compare(b.Sales, a.Sales) })
	top = top[:min(topLimit, len(top))]
	if len(top) == 0 || top[0].Sales == 0 {
		top = []TopProduct{}
	}
	s.TopProducts = top

	low := make([]LowStockItem, 0)
	for _, p := range products {
		if p.LowStock() {
			low = append(low, LowStockItem{ProductID: p.ID, Name: p.Name, Stock: p.Stock, Label: p.StockLabel()})
		}
	}
	slices.SortStableFunc(low, func(a, b LowStockItem) int { return cmp.Compare(a.Stock, b.Stock) })
	s.LowStock = low
	return s
}

// Service computes the summary from the stored orders, products and users.
type Service struct {
	repos *repository.Repos
	now   func() time.Time
}

func NewService(repos *repository.Repos) *Service {
	return &Service{repos: repos, now: time.Now}
}

// Load fetches the three collections in parallel and computes a fresh
// summary. Nothing is cached so status changes show on the next visit.
func (s *Service) Load(ctx context.Context) (Summary, error) {
	var (
		wg        sync.WaitGroup
		orders    []models.Order
		products  []models.Product
		customers []models.User
		errs      [3]error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		orders, errs[0] = s.repos.Orders.All(ctx)
	}()
	go func() {
		defer wg.Done()
		products, errs[1] = s.repos.Products.All(ctx)
	}()
	go func() {
		defer wg.Done()
		customers, errs[2] = s.repos.Users.Customers(ctx)
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return Summary{}, fmt.Errorf("load dashboard: %w", err)
		}
	}

	sum := Compute(orders, products, customers, s.now())
	slog.Debug("Dashboard computed", "orders", sum.TotalOrders, "pending", sum.PendingOrders)
	return sum, nil
}
