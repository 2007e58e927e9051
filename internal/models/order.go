package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

var ErrInvalidStatus = errors.New("invalid order status")

func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s OrderStatus) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// TransitionField names the timestamp recorded the first time an order enters s.
func (s OrderStatus) TransitionField() string {
	switch s {
	case StatusProcessing:
		return "processingDate"
	case StatusShipped:
		return "shippedDate"
	case StatusDelivered:
		return "deliveredDate"
	case StatusCancelled:
		return "cancelledDate"
	}
	return ""
}

type PaymentMethod string

const (
	PaymentCard       PaymentMethod = "card"
	PaymentTransfer   PaymentMethod = "transfer"
	PaymentPaystack   PaymentMethod = "paystack"
	PaymentOnDelivery PaymentMethod = "pod"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCard, PaymentTransfer, PaymentPaystack, PaymentOnDelivery:
		return true
	}
	return false
}

func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCard:
		return "Credit/Debit Card"
	case PaymentTransfer:
		return "Bank Transfer"
	case PaymentPaystack:
		return "Paystack"
	case PaymentOnDelivery:
		return "Pay on Delivery"
	}
	return "Not selected"
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Image     string          `json:"image,omitempty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CustomerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// DisplayName falls back to the email when the name is incomplete.
func (c CustomerInfo) DisplayName() string {
	if c.FirstName != "" && c.LastName != "" {
		return c.FirstName + " " + c.LastName
	}
	if c.Email != "" {
		return c.Email
	}
	return "Unknown"
}

type DeliveryAddress struct {
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber,omitempty"`
	UserID          string          `json:"userId,omitempty"`
	Items           []OrderItem     `json:"items"`
	CustomerInfo    CustomerInfo    `json:"customerInfo"`
	DeliveryAddress DeliveryAddress `json:"deliveryAddress"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Delivery        decimal.Decimal `json:"delivery"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	ProcessingDate  *time.Time      `json:"processingDate,omitempty"`
	ShippedDate     *time.Time      `json:"shippedDate,omitempty"`
	DeliveredDate   *time.Time      `json:"deliveredDate,omitempty"`
	CancelledDate   *time.Time      `json:"cancelledDate,omitempty"`
}

// Number is the customer-facing reference, derived from the ID for old orders.
func (o Order) Number() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	if len(o.ID) > 8 {
		return strings.ToUpper(o.ID[:8])
	}
	return strings.ToUpper(o.ID)
}

// Recalculate derives subtotal from the items and total from subtotal and delivery.
func (o *Order) Recalculate() {
	sub := decimal.Zero
	for _, it := range o.Items {
		sub = sub.Add(it.LineTotal())
	}
	o.Subtotal = sub
	o.Total = sub.Add(o.Delivery)
}

func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// TransitionDate returns the recorded timestamp for s, if any.
func (o Order) TransitionDate(s OrderStatus) *time.Time {
	switch s {
	case StatusPending:
		t := o.CreatedAt
		return &t
	case StatusProcessing:
		return o.ProcessingDate
	case StatusShipped:
		return o.ShippedDate
	case StatusDelivered:
		return o.DeliveredDate
	case StatusCancelled:
		return o.CancelledDate
	}
	return nil
}

// SetTransitionDate records t for s unless a date is already set.
func (o *Order) SetTransitionDate(s OrderStatus, t time.Time) {
	set := func(p **time.Time) {
		if *p == nil {
			v := t
			*p = &v
		}
	}
	switch s {
	case StatusProcessing:
		set(&o.ProcessingDate)
	case StatusShipped:
		set(&o.ShippedDate)
	case StatusDelivered:
		set(&o.DeliveredDate)
	case StatusCancelled:
		set(&o.CancelledDate)
	}
}

type TimelineStep struct {
	Status    OrderStatus `json:"status"`
	Label     string      `json:"label"`
	Date      *time.Time  `json:"date,omitempty"`
	Completed bool        `json:"completed"`
	Current   bool        `json:"current"`
}

var fulfilmentSteps = []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}

// Timeline lists the fulfilment steps up to the current status.
// A cancelled order shows a single cancelled step.
func (o Order) Timeline() []TimelineStep {
	if o.Status == StatusCancelled {
		return []TimelineStep{{
			Status:    StatusCancelled,
			Label:     StatusCancelled.Label(),
			Date:      o.CancelledDate,
			Completed: true,
			Current:   true,
		}}
	}
	current := 0
	for i, s := range fulfilmentSteps {
		if s == o.Status {
			current = i
		}
	}
	steps := make([]TimelineStep, 0, len(fulfilmentSteps))
	for i, s := range fulfilmentSteps {
		step := TimelineStep{Status: s, Label: s.Label(), Completed: i <= current, Current: i == current}
		if step.Completed {
			step.Date = o.TransitionDate(s)
		}
		steps = append(steps, step)
	}
	return steps
}
