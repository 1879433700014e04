package fulfillment

import "github.com/example/storefront/internal/domain/order"

type UpdateStatus struct {
	UserID  string       `json:"user_id"`
	OrderID string       `json:"order_id"`
	Status  order.Status `json:"status"`
}

type UpdateDriverLocation struct {
	UserID    string  `json:"user_id"`
	OrderID   string  `json:"order_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
