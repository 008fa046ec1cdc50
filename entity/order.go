package entity

import (
	"time"

	"github.com/lib/pq"
	"github.com/lithammer/shortuuid/v3"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether the status allows no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusConfirmed || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

type Order struct {
	ID            string          `json:"order_id" db:"order_id"`
	Reference     string          `json:"reference" db:"reference"`
	EventID       string          `json:"event_id" db:"event_id"`
	UserID        string          `json:"user_id" db:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status        OrderStatus     `json:"status" db:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status" db:"payment_status"`
	// PaymentReference is the external processor's transaction id. It stays
	// NULL until the gateway call succeeds.
	PaymentReference *string   `json:"payment_reference" db:"payment_reference"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// NewOrderReference returns a short, human-quotable order reference used in
// payment descriptions and support conversations.
func NewOrderReference() string {
	return shortuuid.New()
}

type OrderItem struct {
	ID            string          `json:"order_item_id" db:"order_item_id"`
	OrderID       string          `json:"order_id" db:"order_id"`
	PriceTierID   string          `json:"tier_id" db:"tier_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price" db:"unit_price"`
	TicketURLs    pq.StringArray  `json:"ticket_urls" db:"ticket_urls"`
	TicketKeys    pq.StringArray  `json:"ticket_keys" db:"ticket_keys"`
}

// OrderItemDetail is an order item joined with its tier snapshot.
type OrderItemDetail struct {
	OrderItem
	TierName     string `db:"tier_name"`
	SeatsPerUnit int    `db:"seats_per_unit"`
}

type OrderWithItems struct {
	Order
	Items []OrderItemDetail
}

// SeatUnits is the total event capacity this order consumes.
func (o OrderWithItems) SeatUnits() int {
	units := 0
	for _, item := range o.Items {
		units += item.Quantity * item.SeatsPerUnit
	}
	return units
}

// Buyer is the polymorphic buyer identity: either an authenticated user id,
// or guest details resolved to a user record at intake.
type Buyer struct {
	UserID string

	GuestEmail     string
	GuestFirstName string
	GuestLastName  string
}

func (b Buyer) Authenticated() bool {
	return b.UserID != ""
}

func (b Buyer) HasGuestInfo() bool {
	return b.GuestEmail != "" && b.GuestFirstName != ""
}
