// Package catalog manages products: the admin editor and lists, and the
// storefront shop filters.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/media"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/validate"
)

// ErrNotPublished hides drafts from the storefront.
var ErrNotPublished = errors.New("product is not available")

// ProductInput is the admin product form. Images lists what is already
// hosted; new uploads are appended after them.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=5000"`
	Category    string          `json:"category" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	SKU         string          `json:"sku"`
	Sizes       []string        `json:"sizes"`
	Colors      []string        `json:"colors"`
	Badges      []string        `json:"badges"`
	Status      string          `json:"status" validate:"omitempty,oneof=published draft"`
	Images      []string        `json:"images"`
}

// Validate runs the tag rules plus the price check the validator cannot express on a decimal.
func (in ProductInput) Validate() error {
	errs := validate.Errors{}
	if err := validate.Struct(in); err != nil {
		var verrs validate.Errors
		if !errors.As(err, &verrs) {
			return err
		}
		errs = verrs
	}
	if !in.Price.IsPositive() {
		errs["price"] = "Price must be greater than zero"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.ToLower(strings.TrimSpace(in.Category))
	p.Price = in.Price
	p.Stock = in.Stock
	p.SKU = strings.TrimSpace(in.SKU)
	p.Sizes = clean(in.Sizes)
	p.Colors = clean(in.Colors)
	p.Badges = clean(in.Badges)
	// An edit without a status keeps the stored one; new products publish.
	if in.Status != "" {
		p.Status = models.ProductStatus(in.Status)
	} else if p.Status == "" {
		p.Status = models.ProductPublished
	}
	if in.Images != nil {
		p.Images = clean(in.Images)
		p.Image = ""
	}
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Service struct {
	repos    *repository.Repos
	uploader media.Uploader
}

func NewService(repos *repository.Repos, uploader media.Uploader) *Service {
	return &Service{repos: repos, uploader: uploader}
}

// Save validates in, uploads files and writes the product. An empty id creates.
// Nothing is written if validation or any upload fails.
func (s *Service) Save(ctx context.Context, id string, in ProductInput, files []media.File, progress media.Progress) (models.Product, error) {
	if err := in.Validate(); err != nil {
		return models.Product{}, err
	}

	var p models.Product
	if id != "" {
		existing, err := s.repos.Products.Get(ctx, id)
		if err != nil {
			return models.Product{}, err
		}
		p = existing
	}
	in.apply(&p)

	if len(files) > 0 {
		if s.uploader == nil {
			return models.Product{}, errors.New("image uploads are not configured")
		}
		urls, err := media.UploadAll(ctx, s.uploader, files, progress)
		if err != nil {
			return models.Product{}, err
		}
		p.Images = append(p.Images, urls...)
		if p.Image == "" && len(p.Images) > 0 {
			p.Image = p.Images[0]
		}
	}

	saved, err := s.repos.Products.Save(ctx, p)
	if err != nil {
		return models.Product{}, fmt.Errorf("save product: %w", err)
	}
	slog.Info("Product saved", "product_id", saved.ID, "name", saved.Name, "images", len(saved.Images))
	return saved, nil
}

// Get returns any product, drafts included.
func (s *Service) Get(ctx context.Context, id string) (models.Product, error) {
	return s.repos.Products.Get(ctx, id)
}

// Published returns a product the storefront may show.
func (s *Service) Published(ctx context.Context, id string) (models.Product, error) {
	p, err := s.repos.Products.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	if p.Status == models.ProductDraft {
		return models.Product{}, ErrNotPublished
	}
	return p, nil
}

// RelatedLimit caps the "you may also like" row on a product page.
const RelatedLimit = 4

// Related picks up to limit products to show beside p: its own category
// first, then any others to fill the row. p itself is never included.
func Related(all []models.Product, p models.Product, limit int) []models.Product {
	out := make([]models.Product, 0, limit)
	taken := map[string]bool{p.ID: true}
	pick := func(match func(models.Product) bool) {
		for _, c := range all {
			if len(out) == limit {
				return
			}
			if !taken[c.ID] && match(c) {
				taken[c.ID] = true
				out = append(out, c)
			}
		}
	}
	pick(func(c models.Product) bool { return strings.EqualFold(c.Category, p.Category) })
	pick(func(models.Product) bool { return true })
	return out
}

// RelatedTo loads the published catalog and picks p's related products.
func (s *Service) RelatedTo(ctx context.Context, p models.Product) ([]models.Product, error) {
	all, err := s.repos.Products.Published(ctx)
	if err != nil {
		return nil, fmt.Errorf("load related products: %w", err)
	}
	return Related(all, p, RelatedLimit), nil
}

// Delete removes one product and drops it from ctrl.
func (s *Service) Delete(ctx context.Context, ctrl *listing.Controller[models.Product], id string) error {
	return ctrl.Remove(ctx, []string{id}, func(ctx context.Context) error {
		return s.repos.Products.Delete(ctx, id)
	})
}

// BulkDelete removes the selected products in one batch and clears the selection.
func (s *Service) BulkDelete(ctx context.Context, ctrl *listing.Controller[models.Product]) (int, error) {
	ids := ctrl.Selected()
	if len(ids) == 0 {
		return 0, nil
	}
	err := ctrl.Remove(ctx, ids, func(ctx context.Context) error {
		return s.repos.Products.BulkDelete(ctx, ids)
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// BulkPublish publishes the selected products in one batch.
func (s *Service) BulkPublish(ctx context.Context, ctrl *listing.Controller[models.Product]) (int, error) {
	ids := ctrl.Selected()
	if len(ids) == 0 {
		return 0, nil
	}
	err := ctrl.Mutate(ctx, ids, func(ctx context.Context) error {
		return s.repos.Products.BulkPublish(ctx, ids)
	}, func(p *models.Product) {
		p.Status = models.ProductPublished
	})
	if err != nil {
		return 0, err
	}
	ctrl.ClearSelection()
	return len(ids), nil
}

const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
	SortName      = "name"
)

var (
	byCreated   = listing.ByTime(func(p models.Product) time.Time { return p.CreatedAt })
	byPrice     = func(a, b models.Product) int { return a.Price.Cmp(b.Price) }
	byName      = listing.ByName(func(p models.Product) string { return p.Name })
	categoryIs  = func(p models.Product, v string, _ time.Time) bool { return strings.EqualFold(p.Category, v) }
	displayedAs = func(p models.Product, v string, _ time.Time) bool { return p.DisplayStatus() == v }
)

// ListConfig describes the admin products list. The status filter matches
// DisplayStatus, so "out-of-stock" is a status of its own.
func ListConfig(pageSize int, fetch func(context.Context) ([]models.Product, error), now func() time.Time) listing.Config[models.Product] {
	return listing.Config[models.Product]{
		Name:     "products",
		PageSize: pageSize,
		ID:       func(p models.Product) string { return p.ID },
		Fetch:    fetch,
		SearchFields: func(p models.Product) []string {
			return []string{p.Name, p.Category, p.SKU}
		},
		Filters: map[string]listing.FilterFunc[models.Product]{
			"category": categoryIs,
			"status":   displayedAs,
		},
		Sorts: map[string]func(a, b models.Product) int{
			SortNewest:    listing.Reverse(byCreated),
			SortOldest:    byCreated,
			SortPriceLow:  byPrice,
			SortPriceHigh: listing.Reverse(byPrice),
			SortNameAsc:   byName,
			SortNameDesc:  listing.Reverse(byName),
		},
		DefaultSort: SortNewest,
		Now:         now,
	}
}

// ShopConfig describes the storefront shop grid. fetch should return published products only.
//
// Filter values:
//   - categories: comma separated, a product matches if its category contains any of them
//   - price: "min-max" in naira, either side may be empty ("50000-" is 50 000 and up)
//   - sizes: comma separated, a product matches if it offers any of them
//   - availability: "in-stock" hides sold out products
func ShopConfig(pageSize int, fetch func(context.Context) ([]models.Product, error)) listing.Config[models.Product] {
	return listing.Config[models.Product]{
		Name:     "shop",
		PageSize: pageSize,
		ID:       func(p models.Product) string { return p.ID },
		Fetch:    fetch,
		SearchFields: func(p models.Product) []string {
			return []string{p.Name, p.Category, p.Description}
		},
		Filters: map[string]listing.FilterFunc[models.Product]{
			"categories": func(p models.Product, v string, _ time.Time) bool {
				cat := strings.ToLower(p.Category)
				for _, c := range splitList(v) {
					if strings.Contains(cat, strings.ToLower(c)) {
						return true
					}
				}
				return false
			},
			"price": func(p models.Product, v string, _ time.Time) bool {
				lo, hi, ok := parseRange(v)
				if !ok {
					return true
				}
				if lo != nil && p.Price.LessThan(*lo) {
					return false
				}
				return hi == nil || !p.Price.GreaterThan(*hi)
			},
			"sizes": func(p models.Product, v string, _ time.Time) bool {
				for _, s := range splitList(v) {
					if p.HasSize(s) {
						return true
					}
				}
				return false
			},
			"availability": func(p models.Product, v string, _ time.Time) bool {
				return v != "in-stock" || !p.OutOfStock()
			},
		},
		Sorts: map[string]func(a, b models.Product) int{
			SortNewest:    listing.Reverse(byCreated),
			SortPriceLow:  byPrice,
			SortPriceHigh: listing.Reverse(byPrice),
			SortName:      byName,
		},
		DefaultSort: SortNewest,
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseRange reads "min-max". ok is false when neither bound parses.
func parseRange(v string) (lo, hi *decimal.Decimal, ok bool) {
	a, b, found := strings.Cut(v, "-")
	if !found {
		return nil, nil, false
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(a)); err == nil {
		lo = &d
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(b)); err == nil {
		hi = &d
	}
	return lo, hi, lo != nil || hi != nil
}

// Categories lists the distinct categories in products, in first-seen order.
func Categories(products []models.Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// IsNotFound reports whether err means the product does not exist or is hidden.
func IsNotFound(err error) bool {
	return errors.Is(err, docstore.ErrNotFound) || errors.Is(err, ErrNotPublished)
}
