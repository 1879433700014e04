package order

import "time"

const AggregateType = "Order"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type PlacedItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
}

type OrderPlaced struct {
	OrderID   string       `json:"order_id"`
	UserID    string       `json:"user_id"`
	UserName  string       `json:"user_name"`
	UserEmail string       `json:"user_email"`
	Items     []PlacedItem `json:"items"`
	Total     int          `json:"total"`
	PlacedAt  time.Time    `json:"placed_at"`
}

// NewOrderPlaced builds the event for a freshly written record.
func NewOrderPlaced(uid string, rec Record, at time.Time) OrderPlaced {
	items := make([]PlacedItem, 0, len(rec.Items))
	for _, l := range rec.Items {
		b := l.Product.Common()
		items = append(items, PlacedItem{
			ProductID: b.ID,
			Name:      b.Name,
			Quantity:  l.Quantity,
			Price:     b.Price,
		})
	}
	return OrderPlaced{
		OrderID:   rec.ID,
		UserID:    uid,
		UserName:  rec.UserName,
		UserEmail: rec.UserEmail,
		Items:     items,
		Total:     rec.Total,
		PlacedAt:  at,
	}
}

type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}
