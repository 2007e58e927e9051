package checkout

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
)

// Cart is the shopper's basket. Lines are unique per product, size and color.
type Cart struct {
	Items []models.OrderItem `json:"items"`
}

// LineKey identifies a cart line.
func LineKey(it models.OrderItem) string {
	return it.ProductID + "|" + it.Size + "|" + it.Color
}

func (c *Cart) index(key string) int {
	return slices.IndexFunc(c.Items, func(it models.OrderItem) bool { return LineKey(it) == key })
}

// Add merges item into an existing line or appends a new one.
func (c *Cart) Add(item models.OrderItem) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if i := c.index(LineKey(item)); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		c.Items[i].Price = item.Price
		return
	}
	c.Items = append(c.Items, item)
}

// Update sets a line's quantity. A quantity of zero or less removes the line.
// It reports whether the line exists.
func (c *Cart) Update(key string, qty int) bool {
	i := c.index(key)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.Items = slices.Delete(c.Items, i, i+1)
		return true
	}
	c.Items[i].Quantity = qty
	return true
}

func (c *Cart) Remove(key string) bool {
	return c.Update(key, 0)
}

func (c *Cart) Clear() {
	c.Items = nil
}

// Count is the number of units, which is what the header badge shows.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Wishlist is a set of product IDs in the order they were added.
type Wishlist struct {
	IDs []string `json:"ids"`
}

// Toggle adds or removes id and reports whether it is now in the list.
func (w *Wishlist) Toggle(id string) bool {
	if i := slices.Index(w.IDs, id); i >= 0 {
		w.IDs = slices.Delete(w.IDs, i, i+1)
		return false
	}
	w.IDs = append(w.IDs, id)
	return true
}

func (w Wishlist) Contains(id string) bool {
	return slices.Contains(w.IDs, id)
}

func (w Wishlist) List() []string {
	return slices.Clone(w.IDs)
}

// Quote is the price breakdown shown on the cart and checkout pages.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Delivery decimal.Decimal `json:"delivery"`
	Total    decimal.Decimal `json:"total"`
	// FreeShippingRemaining is how much more qualifies for free delivery; zero once it does.
	FreeShippingRemaining decimal.Decimal `json:"freeShippingRemaining"`
}

// QuoteFor prices items. Delivery is free once the subtotal reaches the
// threshold, and an empty basket costs nothing.
func QuoteFor(items []models.OrderItem, settings models.StoreSettings) Quote {
	settings = settings.WithDefaults()
	q := Quote{Subtotal: decimal.Zero, Delivery: decimal.Zero, FreeShippingRemaining: decimal.Zero}
	for _, it := range items {
		q.Subtotal = q.Subtotal.Add(it.LineTotal())
	}
	if len(items) > 0 && q.Subtotal.LessThan(settings.FreeShippingThreshold) {
		q.Delivery = settings.DeliveryFee
		q.FreeShippingRemaining = settings.FreeShippingThreshold.Sub(q.Subtotal)
	}
	q.Total = q.Subtotal.Add(q.Delivery)
	return q
}
