// Package checkout holds the cart, the wishlist and order placement.
package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/validate"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrTermsNotAccepted   = errors.New("terms and conditions not accepted")
	ErrProductUnavailable = errors.New("product is no longer available")
	ErrOutOfStock         = errors.New("not enough stock")
	ErrInvalidSize        = errors.New("size not offered for this product")
)

// Request is the checkout form.
type Request struct {
	FirstName     string `json:"firstName" validate:"required,personname"`
	LastName      string `json:"lastName" validate:"required,personname"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,ngphone"`
	Address       string `json:"address" validate:"required,min=5,max=200"`
	City          string `json:"city" validate:"required,max=60"`
	State         string `json:"state" validate:"required,max=60"`
	PostalCode    string `json:"postalCode" validate:"omitempty,max=12"`
	Instructions  string `json:"instructions" validate:"max=500"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=card transfer paystack pod"`
	Terms         bool   `json:"terms"`
}

// ConfirmationMailer sends the order receipt.
type ConfirmationMailer interface {
	OrderConfirmation(ctx context.Context, o models.Order) error
}

type Service struct {
	repos  *repository.Repos
	mailer ConfirmationMailer
}

func NewService(repos *repository.Repos, mailer ConfirmationMailer) *Service {
	return &Service{repos: repos, mailer: mailer}
}

// Basket loads the cart and wishlist stored under id. An empty id or a
// basket that was never written gives an empty cart and wishlist.
func (s *Service) Basket(ctx context.Context, id string) (Cart, Wishlist, error) {
	b, err := s.repos.Baskets.Find(ctx, id)
	if err != nil {
		return Cart{}, Wishlist{}, fmt.Errorf("load basket: %w", err)
	}
	return Cart{Items: b.Items}, Wishlist{IDs: b.Wishlist}, nil
}

func (s *Service) SaveCart(ctx context.Context, id string, c Cart) error {
	if err := s.repos.Baskets.SaveItems(ctx, id, c.Items); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Service) SaveWishlist(ctx context.Context, id string, w Wishlist) error {
	if err := s.repos.Baskets.SaveWishlist(ctx, id, w.IDs); err != nil {
		return fmt.Errorf("save wishlist: %w", err)
	}
	return nil
}

// AddToCart looks the product up and adds a line for it at the current price.
func (s *Service) AddToCart(ctx context.Context, cart *Cart, productID, size, color string, qty int) (models.OrderItem, error) {
	p, err := s.available(ctx, productID)
	if err != nil {
		return models.OrderItem{}, err
	}
	if size != "" && len(p.Sizes) > 0 && !p.HasSize(size) {
		return models.OrderItem{}, fmt.Errorf("%s: %w", size, ErrInvalidSize)
	}
	if qty <= 0 {
		qty = 1
	}
	item := models.OrderItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  qty,
		Size:      size,
		Color:     color,
		Image:     p.PrimaryImage(),
	}
	cart.Add(item)
	return item, nil
}

func (s *Service) available(ctx context.Context, id string) (models.Product, error) {
	p, err := s.repos.Products.Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) || (err == nil && p.Status == models.ProductDraft) {
		return models.Product{}, ErrProductUnavailable
	}
	if err != nil {
		return models.Product{}, err
	}
	if p.OutOfStock() {
		return models.Product{}, fmt.Errorf("%s: %w", p.Name, ErrOutOfStock)
	}
	return p, nil
}

// Wishlist resolves the saved IDs to products, skipping any that were removed.
func (s *Service) Wishlist(ctx context.Context, w Wishlist) ([]models.Product, error) {
	out := make([]models.Product, 0, len(w.IDs))
	for _, id := range w.IDs {
		p, err := s.repos.Products.Get(ctx, id)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.Status != models.ProductDraft {
			out = append(out, p)
		}
	}
	return out, nil
}

// Quote prices cart with the current shipping settings.
func (s *Service) Quote(ctx context.Context, cart Cart) (Quote, error) {
	settings, err := s.repos.Settings.Load(ctx)
	if err != nil {
		return Quote{}, err
	}
	return QuoteFor(cart.Items, settings), nil
}

// PlaceOrder validates req, re-prices the cart from the catalog and writes a
// pending order. The cart is not touched; the caller clears it on success.
// A failed write returns the error and nothing is kept.
func (s *Service) PlaceOrder(ctx context.Context, req Request, cart Cart, userID string) (models.Order, error) {
	if cart.Empty() {
		return models.Order{}, ErrEmptyCart
	}
	if err := validate.Struct(req); err != nil {
		return models.Order{}, err
	}
	if !req.Terms {
		return models.Order{}, ErrTermsNotAccepted
	}

	// Lines differing only in size or color draw on the same stock.
	wanted := make(map[string]int, len(cart.Items))
	for _, line := range cart.Items {
		wanted[line.ProductID] += line.Quantity
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		p, err := s.available(ctx, line.ProductID)
		if err != nil {
			return models.Order{}, fmt.Errorf("%s: %w", line.Name, err)
		}
		if wanted[line.ProductID] > p.Stock {
			return models.Order{}, fmt.Errorf("%s: only %d left: %w", p.Name, p.Stock, ErrOutOfStock)
		}
		line.Name = p.Name
		line.Price = p.Price
		if line.Image == "" {
			line.Image = p.PrimaryImage()
		}
		items = append(items, line)
	}

	settings, err := s.repos.Settings.Load(ctx)
	if err != nil {
		return models.Order{}, err
	}
	q := QuoteFor(items, settings)

	order := models.Order{
		OrderNumber: "AUR-" + generateOrderRef(),
		UserID:      userID,
		Items:       items,
		CustomerInfo: models.CustomerInfo{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:     strings.TrimSpace(req.Phone),
		},
		DeliveryAddress: models.DeliveryAddress{
			Address:      strings.TrimSpace(req.Address),
			City:         strings.TrimSpace(req.City),
			State:        strings.TrimSpace(req.State),
			PostalCode:   strings.TrimSpace(req.PostalCode),
			Instructions: strings.TrimSpace(req.Instructions),
		},
		Delivery:      q.Delivery,
		Status:        models.StatusPending,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		PaymentStatus: "pending",
	}
	order.Recalculate()

	saved, err := s.repos.Orders.Create(ctx, order)
	if err != nil {
		slog.Error("Failed to create order", "error", err)
		return models.Order{}, fmt.Errorf("place order: %w", err)
	}
	slog.Info("Order placed", "order_id", saved.ID, "number", saved.OrderNumber, "total", saved.Total.String())

	if s.mailer != nil {
		if err := s.mailer.OrderConfirmation(ctx, saved); err != nil {
			slog.Error("Failed to send order confirmation", "order_id", saved.ID, "error", err)
		}
	}
	return saved, nil
}

// History lists a signed-in customer's orders, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]models.Order, error) {
	return s.repos.Orders.ForUser(ctx, userID)
}

// Track returns an order if email matches the one it was placed with.
func (s *Service) Track(ctx context.Context, id, email string) (models.Order, error) {
	o, err := s.repos.Orders.Get(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if !strings.EqualFold(o.CustomerInfo.Email, strings.TrimSpace(email)) {
		return models.Order{}, docstore.ErrNotFound
	}
	return o, nil
}

func generateOrderRef() string {
	// I, O, 1 and 0 are left out so references read back unambiguously.
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().Unix(), 10)
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
