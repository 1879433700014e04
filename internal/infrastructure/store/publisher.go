package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/google/uuid"
)

// Publisher is implemented by kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// NewEvent wraps an order event payload in the published envelope.
func NewEvent(orderID, uid, eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   orderID,
		AggregateType: order.AggregateType,
		EventType:     eventType,
		UserID:        uid,
		Data:          raw,
		Timestamp:     time.Now(),
	}, nil
}

// PlacementPublisher writes placed orders through to an OrderStore and then
// announces them with an OrderPlaced event. The write is what makes the
// placement durable; a failed publish is logged and does not fail Put.
type PlacementPublisher struct {
	OrderStore
	publisher Publisher
}

func NewPlacementPublisher(orders OrderStore, publisher Publisher) *PlacementPublisher {
	return &PlacementPublisher{OrderStore: orders, publisher: publisher}
}

func (p *PlacementPublisher) Put(ctx context.Context, uid, orderID string, rec order.Record) error {
	if err := p.OrderStore.Put(ctx, uid, orderID, rec); err != nil {
		return err
	}
	if p.publisher == nil {
		return nil
	}

	rec.ID = orderID
	event, err := NewEvent(orderID, uid, order.EventOrderPlaced, order.NewOrderPlaced(uid, rec, time.Now()))
	if err != nil {
		log.Printf("[OrderStore] Failed to build OrderPlaced for %s: %v", orderID, err)
		return nil
	}
	if err := p.publisher.Publish(ctx, orderID, event); err != nil {
		log.Printf("[OrderStore] Failed to publish OrderPlaced for %s: %v", orderID, err)
	}
	return nil
}

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, key string, event any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, key, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
