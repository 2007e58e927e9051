package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/catalog"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/checkout"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/contact"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/listing"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/notify"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/settings"
)

// ShopHandler serves the storefront: catalog, cart, wishlist, checkout and contact.
type ShopHandler struct {
	SessionStore sessions.Store
	Catalog      *catalog.Service
	Checkout     *checkout.Service
	Contact      *contact.Service
	Settings     *settings.Service
	Shop         *listing.Registry[models.Product]
	Notifier     notify.Notifier
	// FormLimiter throttles checkout and contact submissions. Optional.
	FormLimiter *RateLimiter
}

func (h *ShopHandler) Register(mux *http.ServeMux) {
	limit := func(fn http.HandlerFunc) http.HandlerFunc {
		if h.FormLimiter == nil {
			return fn
		}
		return h.FormLimiter.Middleware(fn)
	}
	mux.HandleFunc("GET /api/csrf", CSRFToken)
	mux.HandleFunc("GET /api/toasts", h.Toasts)
	mux.HandleFunc("GET /api/settings", h.StoreSettings)
	mux.HandleFunc("GET /api/products", h.Products)
	mux.HandleFunc("GET /api/products/{id}", h.Product)
	mux.HandleFunc("GET /api/categories", h.Categories)
	mux.HandleFunc("GET /api/cart", h.Cart)
	mux.HandleFunc("POST /api/cart", h.AddToCart)
	mux.HandleFunc("POST /api/cart/update", h.UpdateCart)
	mux.HandleFunc("POST /api/cart/clear", h.ClearCart)
	mux.HandleFunc("GET /api/wishlist", h.Wishlist)
	mux.HandleFunc("POST /api/wishlist/{id}", h.ToggleWishlist)
	mux.HandleFunc("POST /api/checkout", limit(h.PlaceOrder))
	mux.HandleFunc("GET /api/orders/{id}", h.TrackOrder)
	mux.HandleFunc("POST /api/contact", limit(h.SubmitContact))
}

func (h *ShopHandler) session(r *http.Request) *sessions.Session {
	s, _ := h.SessionStore.Get(r, ShopSession)
	return s
}

func (h *ShopHandler) Toasts(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	flashes := GetFlash(s)
	saveSession(w, r, s)
	writeJSON(w, http.StatusOK, map[string]any{"toasts": flashes})
}

func (h *ShopHandler) StoreSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Settings.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Products is the shop grid: q, categories, price, sizes, availability, sort, page.
func (h *ShopHandler) Products(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	ctrl := h.Shop.Get(listID(s))
	saveSession(w, r, s)
	resp, err := listPage(r, ctrl, "categories", "price", "sizes", "availability")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Product serves the detail page: the product, its stock label, whether it
// is wishlisted and the related products row.
func (h *ShopHandler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Published(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	related, err := h.Catalog.RelatedTo(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_, wl, err := h.Checkout.Basket(r.Context(), basketID(h.session(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product":    p,
		"stockLabel": p.StockLabel(),
		"wishlisted": wl.Contains(p.ID),
		"related":    related,
	})
}

func (h *ShopHandler) Categories(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	ctrl := h.Shop.Get(listID(s))
	saveSession(w, r, s)
	if err := ctrl.EnsureLoaded(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": catalog.Categories(ctrl.Snapshot())})
}

type cartResponse struct {
	Items []models.OrderItem `json:"items"`
	Count int                `json:"count"`
	Quote checkout.Quote     `json:"quote"`
}

func (h *ShopHandler) writeCart(w http.ResponseWriter, r *http.Request, c checkout.Cart) {
	q, err := h.Checkout.Quote(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items := c.Items
	if items == nil {
		items = []models.OrderItem{}
	}
	writeJSON(w, http.StatusOK, cartResponse{Items: items, Count: c.Count(), Quote: q})
}

func (h *ShopHandler) Cart(w http.ResponseWriter, r *http.Request) {
	c, _, err := h.Checkout.Basket(r.Context(), basketID(h.session(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, r, c)
}

// openBasket loads the session's basket for a change, minting its id and
// persisting the session first so a new basket is never orphaned.
func (h *ShopHandler) openBasket(w http.ResponseWriter, r *http.Request, s *sessions.Session) (string, checkout.Cart, checkout.Wishlist, error) {
	id := basketID(s)
	if id == "" {
		id = ensureBasketID(s)
		if err := saveSession(w, r, s); err != nil {
			return "", checkout.Cart{}, checkout.Wishlist{}, err
		}
	}
	c, wl, err := h.Checkout.Basket(r.Context(), id)
	return id, c, wl, err
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

func (h *ShopHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s := h.session(r)
	id, c, _, err := h.openBasket(w, r, s)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.Checkout.AddToCart(r.Context(), &c, req.ProductID, req.Size, req.Color, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Checkout.SaveCart(r.Context(), id, c); err != nil {
		writeError(w, r, err)
		return
	}
	h.Notifier.Notify(withSession(r.Context(), s), item.Name+" added to cart", notify.LevelSuccess)
	saveSession(w, r, s)
	h.writeCart(w, r, c)
}

type updateCartRequest struct {
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
}

// UpdateCart sets a line's quantity; zero removes it.
func (h *ShopHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s := h.session(r)
	id, c, _, err := h.openBasket(w, r, s)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.Update(req.Key, req.Quantity)
	if err := h.Checkout.SaveCart(r.Context(), id, c); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, r, c)
}

func (h *ShopHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if id := basketID(h.session(r)); id != "" {
		if err := h.Checkout.SaveCart(r.Context(), id, checkout.Cart{}); err != nil {
			writeError(w, r, err)
			return
		}
	}
	h.writeCart(w, r, checkout.Cart{})
}

func (h *ShopHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	_, wl, err := h.Checkout.Basket(r.Context(), basketID(h.session(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.Checkout.Wishlist(r.Context(), wl)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": wl.List(), "products": products})
}

func (h *ShopHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	id, _, wl, err := h.openBasket(w, r, s)
	if err != nil {
		writeError(w, r, err)
		return
	}
	added := wl.Toggle(r.PathValue("id"))
	if err := h.Checkout.SaveWishlist(r.Context(), id, wl); err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Removed from wishlist"
	if added {
		msg = "Added to wishlist"
	}
	h.Notifier.Notify(withSession(r.Context(), s), msg, notify.LevelInfo)
	saveSession(w, r, s)
	writeJSON(w, http.StatusOK, map[string]any{"wishlisted": added, "count": len(wl.IDs)})
}

// PlaceOrder submits the checkout form. The cart is cleared only after the order is stored.
func (h *ShopHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s := h.session(r)
	id := basketID(s)
	c, _, err := h.Checkout.Basket(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Checkout.PlaceOrder(r.Context(), req, c, sessionUser(s))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Checkout.SaveCart(r.Context(), id, checkout.Cart{}); err != nil {
		// The order stands; the shopper can empty the cart by hand.
		slog.Error("Failed to clear cart after checkout", "order_id", o.ID, "error", err)
	}
	h.Notifier.Notify(withSession(r.Context(), s), "Order placed successfully!", notify.LevelSuccess)
	saveSession(w, r, s)
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":    o,
		"number":   o.Number(),
		"redirect": "/order-confirmation?id=" + o.ID,
	})
}

// TrackOrder shows one order to whoever knows its id and email.
func (h *ShopHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Checkout.Track(r.Context(), r.PathValue("id"), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o, "timeline": o.Timeline()})
}

func (h *ShopHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var f contact.Form
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Contact.Submit(r.Context(), f); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Thank you! Your message has been sent."})
}
