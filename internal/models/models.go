package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire and into the document store as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Collection names shared by every store backend.
const (
	CollectionOrders      = "orders"
	CollectionProducts    = "products"
	CollectionUsers       = "users"
	CollectionCredentials = "credentials"
	CollectionMessages    = "contact_messages"
	CollectionSettings    = "settings"
	CollectionBaskets     = "baskets"
)

// Basket is a shopper's cart and wishlist, keyed by the id their session carries.
type Basket struct {
	ID        string      `json:"id"`
	Items     []OrderItem `json:"items"`
	Wishlist  []string    `json:"wishlist"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Role is the user document's role field.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"

	// legacyCustomerRole is what older registrations wrote.
	legacyCustomerRole Role = "auranove_user"
)

// NormalizeRole folds the legacy and empty roles into customer.
func NormalizeRole(r Role) Role {
	switch r {
	case "", legacyCustomerRole:
		return RoleCustomer
	}
	return r
}

func IsAdminRole(r Role) bool {
	r = NormalizeRole(r)
	return r == RoleAdmin || r == RoleSuperAdmin
}

type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.LastName
}

// Credential holds the identity-service secret for a user. Its ID is the user ID.
type Credential struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ContactMessage struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Subject   string     `json:"subject"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type SocialLinks struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
	WhatsApp  string `json:"whatsapp,omitempty"`
}

// StoreSettings is the singleton settings/store document.
type StoreSettings struct {
	StoreName             string          `json:"storeName"`
	StoreEmail            string          `json:"storeEmail"`
	StorePhone            string          `json:"storePhone"`
	StoreAddress          string          `json:"storeAddress"`
	Social                SocialLinks     `json:"social"`
	DeliveryFee           decimal.Decimal `json:"deliveryFee"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	DeliveryTime          string          `json:"deliveryTime,omitempty"`
	DeliveryZones         []string        `json:"deliveryZones,omitempty"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

const (
	SettingsDocID = "store"

	defaultDeliveryFee           = 2500
	defaultFreeShippingThreshold = 50000
)

// DefaultSettings is what the storefront uses before an admin saves settings.
func DefaultSettings() StoreSettings {
	return StoreSettings{
		StoreName:             "Auranova Afrique",
		DeliveryFee:           decimal.NewFromInt(defaultDeliveryFee),
		FreeShippingThreshold: decimal.NewFromInt(defaultFreeShippingThreshold),
		DeliveryTime:          "3-5 business days",
	}
}

// WithDefaults fills unset shipping values.
func (s StoreSettings) WithDefaults() StoreSettings {
	d := DefaultSettings()
	if s.StoreName == "" {
		s.StoreName = d.StoreName
	}
	if s.DeliveryFee.IsZero() {
		s.DeliveryFee = d.DeliveryFee
	}
	if s.FreeShippingThreshold.IsZero() {
		s.FreeShippingThreshold = d.FreeShippingThreshold
	}
	if s.DeliveryTime == "" {
		s.DeliveryTime = d.DeliveryTime
	}
	return s
}
