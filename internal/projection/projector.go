package projection

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
)

// Projector folds order events into summaries. Events may arrive out of
// order and more than once: a status change older than the summary's last
// update is dropped, and a status change seen before its OrderPlaced is kept
// when the placement finally arrives.
type Projector struct {
	summaries store.SummaryStore
}

func NewProjector(summaries store.SummaryStore) *Projector {
	return &Projector{summaries: summaries}
}

func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	log.Printf("[Projector] Received event: %s (order: %s)", event.EventType, event.AggregateID)

	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.applyPlaced(ctx, e)
	case order.EventOrderStatusChanged:
		var e order.OrderStatusChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.applyStatusChanged(ctx, e)
	}
	return nil
}

func (p *Projector) applyPlaced(ctx context.Context, e order.OrderPlaced) error {
	sum, found, err := p.load(ctx, e.OrderID)
	if err != nil {
		return err
	}

	itemCount := 0
	for _, it := range e.Items {
		itemCount += it.Quantity
	}

	sum.OrderID = e.OrderID
	sum.UserID = e.UserID
	sum.UserName = e.UserName
	sum.UserEmail = e.UserEmail
	sum.ItemCount = itemCount
	sum.Total = e.Total
	sum.PlacedAt = e.PlacedAt
	if !found || !sum.UpdatedAt.After(e.PlacedAt) {
		sum.Status = order.StatusProcessing
		sum.UpdatedAt = e.PlacedAt
	}
	return p.summaries.SetSummary(ctx, sum)
}

func (p *Projector) applyStatusChanged(ctx context.Context, e order.OrderStatusChanged) error {
	sum, found, err := p.load(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if found && e.ChangedAt.Before(sum.UpdatedAt) {
		log.Printf("[Projector] Dropping stale status %s for order %s", e.To, e.OrderID)
		return nil
	}

	if !found {
		sum = readmodel.OrderSummary{OrderID: e.OrderID, UserID: e.UserID, UserEmail: e.UserEmail}
	}
	sum.Status = e.To
	sum.UpdatedAt = e.ChangedAt
	return p.summaries.SetSummary(ctx, sum)
}

func (p *Projector) load(ctx context.Context, orderID string) (readmodel.OrderSummary, bool, error) {
	sum, err := p.summaries.GetSummary(ctx, orderID)
	if errors.Is(err, store.ErrSummaryNotFound) {
		return readmodel.OrderSummary{}, false, nil
	}
	if err != nil {
		return readmodel.OrderSummary{}, false, err
	}
	return sum, true, nil
}

// Publish applies an event directly, so a Projector can stand in for a
// broker when the API runs without Kafka.
func (p *Projector) Publish(ctx context.Context, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.HandleEvent(ctx, []byte(key), value)
}
