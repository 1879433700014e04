package order

import (
	"time"

	"github.com/example/storefront/internal/domain/cart"
)

// Location is a driver position reported by fulfillment.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Record is the persisted order document, addressed by (uid, id).
type Record struct {
	ID             string      `json:"id"`
	Items          []cart.Line `json:"items"`
	Total          int         `json:"total"`
	Date           string      `json:"date"`
	Status         Status      `json:"status"`
	UserName       string      `json:"userName"`
	UserEmail      string      `json:"userEmail"`
	CreatedAt      time.Time   `json:"createdAt"`
	DriverLocation *Location   `json:"driverLocation"`
}

// Owner identifies who placed the order.
type Owner struct {
	UID   string
	Email string
	Name  string
}

const defaultUserName = "User"

// NewRecord builds the document written at placement. CreatedAt is left zero:
// the store assigns it when the write lands.
func NewRecord(o *Order, owner Owner) Record {
	name := owner.Name
	if name == "" {
		name = defaultUserName
	}
	items := make([]cart.Line, len(o.Items))
	copy(items, o.Items)
	return Record{
		ID:             o.ID,
		Items:          items,
		Total:          o.Total,
		Date:           o.Date.Format(time.RFC3339Nano),
		Status:         o.Status,
		UserName:       name,
		UserEmail:      owner.Email,
		DriverLocation: nil,
	}
}

// Order converts a stored document back to the domain view. A malformed date
// falls back to CreatedAt.
func (r Record) Order() *Order {
	date, err := time.Parse(time.RFC3339Nano, r.Date)
	if err != nil {
		date = r.CreatedAt
	}
	items := make([]cart.Line, len(r.Items))
	copy(items, r.Items)
	return &Order{
		ID:     r.ID,
		Items:  items,
		Total:  r.Total,
		Date:   date,
		Status: r.Status,
	}
}
