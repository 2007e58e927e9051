package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductPublished ProductStatus = "published"
	ProductDraft     ProductStatus = "draft"
)

// LowStockThreshold is the stock level at or below which a product is flagged.
const LowStockThreshold = 5

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	SKU         string          `json:"sku,omitempty"`
	Sizes       []string        `json:"sizes"`
	Colors      []string        `json:"colors"`
	Badges      []string        `json:"badges,omitempty"`
	Images      []string        `json:"images"`
	Image       string          `json:"image,omitempty"`
	Status      ProductStatus   `json:"status"`
	InStock     bool            `json:"inStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Reconcile derives the stored availability flags from stock and images.
// Stock is authoritative; inStock is never set independently.
func (p *Product) Reconcile() {
	p.InStock = p.Stock > 0
	if p.Image == "" && len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	if p.Status == "" {
		p.Status = ProductPublished
	}
}

func (p Product) OutOfStock() bool {
	return p.Stock <= 0
}

func (p Product) LowStock() bool {
	return p.Stock <= LowStockThreshold
}

// DisplayStatus is the badge shown in admin lists: out of stock wins over the publish state.
func (p Product) DisplayStatus() string {
	if p.OutOfStock() {
		return "out-of-stock"
	}
	if p.Status == "" {
		return string(ProductPublished)
	}
	return string(p.Status)
}

func (p Product) StockLabel() string {
	switch {
	case p.OutOfStock():
		return "Out of stock"
	case p.LowStock():
		return fmt.Sprintf("Only %d left", p.Stock)
	}
	return "In stock"
}

func (p Product) PrimaryImage() string {
	if p.Image != "" {
		return p.Image
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}

func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
