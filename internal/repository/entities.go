package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
)

// Repos bundles the typed collections the services share.
type Repos struct {
	Orders      *Orders
	Products    *Products
	Users       *Users
	Credentials *Credentials
	Messages    *Messages
	Settings    *Settings
	Baskets     *Baskets
}

func New(s docstore.Store) *Repos {
	return &Repos{
		Orders:      &Orders{NewCollection(s, models.CollectionOrders, func(o *models.Order, id string) { o.ID = id })},
		Products:    &Products{NewCollection(s, models.CollectionProducts, func(p *models.Product, id string) { p.ID = id })},
		Users:       &Users{NewCollection(s, models.CollectionUsers, func(u *models.User, id string) { u.ID = id })},
		Credentials: &Credentials{NewCollection(s, models.CollectionCredentials, func(c *models.Credential, id string) { c.ID = id })},
		Messages:    &Messages{NewCollection(s, models.CollectionMessages, func(m *models.ContactMessage, id string) { m.ID = id })},
		Settings:    &Settings{store: s},
		Baskets:     &Baskets{NewCollection(s, models.CollectionBaskets, func(b *models.Basket, id string) { b.ID = id })},
	}
}

type Orders struct {
	Collection[models.Order]
}

// UpdateStatus writes the new status and, the first time the order enters it,
// the matching transition date. It returns the order as it now stands.
func (r *Orders) UpdateStatus(ctx context.Context, o models.Order, status models.OrderStatus, now time.Time) (models.Order, error) {
	fields := docstore.Fields{"status": status}
	if field := status.TransitionField(); field != "" && o.TransitionDate(status) == nil {
		fields[field] = now
	}
	if err := r.Update(ctx, o.ID, fields); err != nil {
		return o, fmt.Errorf("update order %s status: %w", o.ID, err)
	}
	o.Status = status
	o.SetTransitionDate(status, now)
	o.UpdatedAt = now
	return o, nil
}

func (r *Orders) ForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return r.List(ctx, docstore.Query{
		Where:   []docstore.Filter{docstore.Where("userId", userID)},
		OrderBy: "createdAt",
		Desc:    true,
	})
}

type Products struct {
	Collection[models.Product]
}

// Published lists what the storefront may show.
func (r *Products) Published(ctx context.Context) ([]models.Product, error) {
	return r.List(ctx, docstore.Query{
		Where:   []docstore.Filter{docstore.Where("status", models.ProductPublished)},
		OrderBy: "createdAt",
		Desc:    true,
	})
}

func (r *Products) Save(ctx context.Context, p models.Product) (models.Product, error) {
	p.Reconcile()
	if p.ID == "" {
		return r.Create(ctx, p)
	}
	if err := r.Set(ctx, p.ID, p, false); err != nil {
		return p, err
	}
	return r.Get(ctx, p.ID)
}

func (r *Products) BulkPublish(ctx context.Context, ids []string) error {
	return r.UpdateMany(ctx, ids, docstore.Fields{"status": models.ProductPublished})
}

func (r *Products) BulkDelete(ctx context.Context, ids []string) error {
	return r.DeleteMany(ctx, ids)
}

type Users struct {
	Collection[models.User]
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := r.List(ctx, docstore.Query{
		Where: []docstore.Filter{docstore.Where("email", strings.ToLower(strings.TrimSpace(email)))},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// Customers returns every user whose normalized role is customer.
func (r *Users) Customers(ctx context.Context) ([]models.User, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, u := range all {
		if models.NormalizeRole(u.Role) == models.RoleCustomer {
			out = append(out, u)
		}
	}
	return out, nil
}

// Role fetches the role for uid. A missing profile reads as customer.
func (r *Users) Role(ctx context.Context, uid string) (models.Role, error) {
	u, err := r.Get(ctx, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.RoleCustomer, nil
	}
	if err != nil {
		return "", err
	}
	return models.NormalizeRole(u.Role), nil
}

func (r *Users) SetRole(ctx context.Context, uid string, role models.Role) error {
	return r.Update(ctx, uid, docstore.Fields{"role": role})
}

type Credentials struct {
	Collection[models.Credential]
}

func (r *Credentials) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	creds, err := r.List(ctx, docstore.Query{
		Where: []docstore.Filter{docstore.Where("email", strings.ToLower(strings.TrimSpace(email)))},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, nil
	}
	return &creds[0], nil
}

type Messages struct {
	Collection[models.ContactMessage]
}

func (r *Messages) MarkRead(ctx context.Context, id string, now time.Time) error {
	return r.Update(ctx, id, docstore.Fields{"read": true, "readAt": now})
}

// MarkAllRead flags every id read in one batch.
func (r *Messages) MarkAllRead(ctx context.Context, ids []string, now time.Time) error {
	return r.UpdateMany(ctx, ids, docstore.Fields{"read": true, "readAt": now})
}

func (r *Messages) BulkDelete(ctx context.Context, ids []string) error {
	return r.DeleteMany(ctx, ids)
}

type Settings struct {
	store docstore.Store
}

// Load returns the saved settings with defaults filled in.
func (r *Settings) Load(ctx context.Context) (models.StoreSettings, error) {
	d, err := r.store.Get(ctx, models.CollectionSettings, models.SettingsDocID)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.StoreSettings{}, err
	}
	var s models.StoreSettings
	if err := d.Decode(&s); err != nil {
		return models.StoreSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s.WithDefaults(), nil
}

// Merge writes fields into the settings document, creating it if needed.
func (r *Settings) Merge(ctx context.Context, fields docstore.Fields) error {
	return r.store.Set(ctx, models.CollectionSettings, models.SettingsDocID, fields, true)
}

// Baskets holds carts and wishlists server-side so they are not bound by the
// session cookie's size.
type Baskets struct {
	Collection[models.Basket]
}

// Find returns the basket for id, or an empty one when there is none yet.
func (r *Baskets) Find(ctx context.Context, id string) (models.Basket, error) {
	if id == "" {
		return models.Basket{}, nil
	}
	b, err := r.Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Basket{ID: id}, nil
	}
	return b, err
}

// SaveItems replaces the cart lines, creating the basket if needed.
func (r *Baskets) SaveItems(ctx context.Context, id string, items []models.OrderItem) error {
	if items == nil {
		items = []models.OrderItem{}
	}
	return r.Set(ctx, id, docstore.Fields{"items": items}, true)
}

// SaveWishlist replaces the wishlist ids, creating the basket if needed.
func (r *Baskets) SaveWishlist(ctx context.Context, id string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return r.Set(ctx, id, docstore.Fields{"wishlist": ids}, true)
}
