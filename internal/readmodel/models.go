package readmodel

import (
	"time"

	"github.com/example/storefront/internal/domain/order"
)

// OrderSummary is the reporting view of one order, projected from order events.
type OrderSummary struct {
	OrderID   string       `json:"order_id"`
	UserID    string       `json:"user_id"`
	UserName  string       `json:"user_name"`
	UserEmail string       `json:"user_email"`
	ItemCount int          `json:"item_count"`
	Total     int          `json:"total"`
	Status    order.Status `json:"status"`
	PlacedAt  time.Time    `json:"placed_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Placed reports whether the OrderPlaced event has been applied.
func (s OrderSummary) Placed() bool {
	return !s.PlacedAt.IsZero()
}
