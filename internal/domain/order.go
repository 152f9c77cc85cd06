package domain

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order lifecycle statuses. An order starts life as the user's cart and
// moves forward on checkout and production events. It never moves backward.
const (
	OrderStatusCart         = "cart"
	OrderStatusProcessed    = "processed"
	OrderStatusInProduction = "in_production"
	OrderStatusCompleted    = "completed"
)

// Order is a customer order. At most one order per user is in the cart
// status at any time.
type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Code        string      `json:"code"`
	Batch       string      `json:"batch"`
	Status      string      `json:"status"`
	Items       []OrderItem `json:"items,omitempty"`
	ProcessedAt *time.Time  `json:"processed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OrderItem is a product/quantity line inside an order. UnitPrice is
// captured at checkout time so later catalog price changes do not rewrite
// historical orders.
type OrderItem struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOrderCode generates a short human-readable order code such as
// "ORD-3FA85F64".
func NewOrderCode() string {
	id := uuid.New()
	return "ORD-" + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// DefaultBatch derives the production batch identifier for an order code.
// Checkout may replace it with a caller-supplied batch.
func DefaultBatch(code string) string {
	return "BATCH-" + code
}

// Total returns the order total across all items.
func (o *Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}
