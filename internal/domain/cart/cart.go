package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront/internal/domain/product"
)

var (
	ErrInvalidProduct = errors.New("product with an id is required")
)

// Line pairs one product with its requested quantity. Quantity is always >= 1
// while the line is held by a Cart.
type Line struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// ProductID is the id of the line's product.
func (l Line) ProductID() string {
	return l.Product.Common().ID
}

// Subtotal is price * quantity for the line.
func (l Line) Subtotal() int {
	return l.Product.Common().Price * l.Quantity
}

func (l *Line) UnmarshalJSON(data []byte) error {
	var raw struct {
		Product  json.RawMessage `json:"product"`
		Quantity int             `json:"quantity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p, err := product.Unmarshal(raw.Product)
	if err != nil {
		return fmt.Errorf("cart line: %w", err)
	}
	l.Product = p
	l.Quantity = raw.Quantity
	return nil
}

// Cart is an insertion-ordered list of lines with at most one line per product id.
// Totals are always derived from the lines; nothing is cached.
// A Cart is not safe for concurrent use; checkout.Store guards it.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add increments the product's line by one, appending a new line when absent.
func (c *Cart) Add(p product.Product) error {
	if p == nil || p.Common().ID == "" {
		return ErrInvalidProduct
	}

	id := p.Common().ID
	if i := c.index(id); i >= 0 {
		c.lines[i].Quantity++
		return nil
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
	return nil
}

// Remove decrements the product's line by one and drops the line when it reaches zero.
// Removing an absent product is a no-op.
func (c *Cart) Remove(productID string) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.decrement(i, 1)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// QuantityOf returns the line quantity, or 0 when the product is not in the cart.
func (c *Cart) QuantityOf(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Total is the subtotal: the sum of price * quantity over all lines.
func (c *Cart) Total() int {
	total := 0
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// ItemCount is the sum of all line quantities.
func (c *Cart) ItemCount() int {
	count := 0
	for _, l := range c.lines {
		count += l.Quantity
	}
	return count
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the lines. Products are immutable values, so a
// copied slice never aliases the live cart.
func (c *Cart) Lines() []Line {
	if len(c.lines) == 0 {
		return []Line{}
	}
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Subtract removes the quantities recorded in snapshot from the cart. Lines
// added after the snapshot was taken survive; a line never drops below zero.
func (c *Cart) Subtract(snapshot []Line) {
	for _, s := range snapshot {
		i := c.index(s.ProductID())
		if i < 0 {
			continue
		}
		n := s.Quantity
		if n > c.lines[i].Quantity {
			n = c.lines[i].Quantity
		}
		c.decrement(i, n)
	}
}

func (c *Cart) decrement(i, n int) {
	if n < 1 {
		return
	}
	q := c.lines[i].Quantity - n
	switch {
	case q > 0:
		c.lines[i].Quantity = q
	case q == 0:
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	default:
		panic(fmt.Sprintf("cart: invariant violated: line %s would hold quantity %d", c.lines[i].ProductID(), q))
	}
}

func (c *Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.ProductID() == productID {
			return i
		}
	}
	return -1
}
