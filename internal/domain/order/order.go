package order

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/example/storefront/internal/domain/cart"
)

type Status string

const (
	StatusProcessing Status = "Processing"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidStatus    = errors.New("invalid order status transition")
	ErrUnknownStatus    = errors.New("unknown order status")
	ErrOrderDelivered   = errors.New("order is already delivered")
	ErrOrderCancelled   = errors.New("order is already cancelled")
	ErrOrderNotInFlight = errors.New("order is no longer being processed")
)

// validTransitions defines the moves an external fulfillment process may make.
var validTransitions = map[Status][]Status{
	StatusProcessing: {StatusDelivered, StatusCancelled},
	StatusDelivered:  {}, // terminal state
	StatusCancelled:  {}, // terminal state
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CanTransition reports whether from -> to is an allowed move.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError returns the most specific error for a rejected move.
func TransitionError(from, to Status) error {
	switch from {
	case StatusDelivered:
		return ErrOrderDelivered
	case StatusCancelled:
		return ErrOrderCancelled
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, from, to)
	}
}

// Order is the immutable record produced by a successful placement.
type Order struct {
	ID     string      `json:"id"`
	Items  []cart.Line `json:"items"`
	Total  int         `json:"total"`
	Date   time.Time   `json:"date"`
	Status Status      `json:"status"`
}

// New snapshots lines into a Processing order. The caller passes a copy of the
// cart lines; New copies them again so the order never shares a backing array.
func New(id string, lines []cart.Line, total int, now time.Time) *Order {
	items := make([]cart.Line, len(lines))
	copy(items, lines)
	return &Order{
		ID:     id,
		Items:  items,
		Total:  total,
		Date:   now.UTC(),
		Status: StatusProcessing,
	}
}

// NewID formats the legacy order id: "ORD-" plus the last six digits of the
// epoch-millisecond timestamp. Two ids minted in the same millisecond-suffix
// window collide.
func NewID(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	for len(ms) < 6 {
		ms = "0" + ms
	}
	return "ORD-" + ms[len(ms)-6:]
}

// ItemCount is the number of units in the order.
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Items {
		n += l.Quantity
	}
	return n
}
