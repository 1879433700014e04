package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/store"
)

// Mailer sends customer mail for order events.
type Mailer interface {
	SendOrderConfirmation(to, name, orderID string, total int, items []email.OrderItem) error
	SendStatusUpdate(to, orderID, previous, status string) error
}

// Handler turns order events into customer emails.
type Handler struct {
	mailer Mailer
}

func NewHandler(mailer Mailer) *Handler {
	return &Handler{mailer: mailer}
}

// HandleEvent processes one event envelope from Kafka or Kinesis.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.EventType {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(event)
	case order.EventOrderStatusChanged:
		return h.handleStatusChanged(event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPlaced event: %v", err)
		return err
	}

	if e.UserEmail == "" {
		log.Printf("[Notifier] Order %s has no email on file, skipping confirmation", e.OrderID)
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, it := range e.Items {
		items[i] = email.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}

	if err := h.mailer.SendOrderConfirmation(e.UserEmail, e.UserName, e.OrderID, e.Total, items); err != nil {
		log.Printf("[Notifier] Failed to send confirmation to %s: %v", e.UserEmail, err)
		return err
	}

	log.Printf("[Notifier] Confirmation sent to %s for order %s", e.UserEmail, e.OrderID)
	return nil
}

func (h *Handler) handleStatusChanged(event store.Event) error {
	var e order.OrderStatusChanged
	if err := json.Unmarshal(event.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderStatusChanged event: %v", err)
		return err
	}

	if e.From == e.To {
		return nil
	}
	if e.UserEmail == "" {
		log.Printf("[Notifier] Order %s has no email on file, skipping status update", e.OrderID)
		return nil
	}

	if err := h.mailer.SendStatusUpdate(e.UserEmail, e.OrderID, string(e.From), string(e.To)); err != nil {
		log.Printf("[Notifier] Failed to send status update to %s: %v", e.UserEmail, err)
		return err
	}

	log.Printf("[Notifier] Order %s status %s -> %s mailed to %s", e.OrderID, e.From, e.To, e.UserEmail)
	return nil
}
