package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
)

var ErrInvalidLocation = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")

// Service is the external process that moves orders out of Processing.
// Writes are read-modify-write against the repository; concurrent updates to
// the same order are last-writer-wins.
type Service struct {
	orders    store.OrderStore
	publisher store.Publisher
	now       func() time.Time
}

func NewService(orders store.OrderStore, publisher store.Publisher) *Service {
	return &Service{orders: orders, publisher: publisher, now: time.Now}
}

// UpdateStatus applies a status transition. Setting the current status again
// is a no-op and publishes nothing.
func (s *Service) UpdateStatus(ctx context.Context, cmd UpdateStatus) (order.Record, error) {
	if _, err := order.ParseStatus(string(cmd.Status)); err != nil {
		return order.Record{}, err
	}

	rec, err := s.orders.Get(ctx, cmd.UserID, cmd.OrderID)
	if err != nil {
		return order.Record{}, err
	}

	from := rec.Status
	if from == cmd.Status {
		return rec, nil
	}
	if !order.CanTransition(from, cmd.Status) {
		return order.Record{}, order.TransitionError(from, cmd.Status)
	}

	rec.Status = cmd.Status
	if cmd.Status != order.StatusProcessing {
		rec.DriverLocation = nil
	}
	if err := s.orders.Put(ctx, cmd.UserID, cmd.OrderID, rec); err != nil {
		return order.Record{}, fmt.Errorf("update order %s status: %w", cmd.OrderID, err)
	}
	log.Printf("[Fulfillment] Order %s: %s -> %s", cmd.OrderID, from, cmd.Status)

	s.publishStatusChanged(ctx, cmd.UserID, rec, from)
	return rec, nil
}

// UpdateDriverLocation records where the delivery driver is. Only orders
// still being processed accept a location.
func (s *Service) UpdateDriverLocation(ctx context.Context, cmd UpdateDriverLocation) (order.Record, error) {
	if !validCoordinate(cmd.Latitude, 90) || !validCoordinate(cmd.Longitude, 180) {
		return order.Record{}, ErrInvalidLocation
	}

	rec, err := s.orders.Get(ctx, cmd.UserID, cmd.OrderID)
	if err != nil {
		return order.Record{}, err
	}
	if rec.Status != order.StatusProcessing {
		return order.Record{}, fmt.Errorf("%w: %s is %s", order.ErrOrderNotInFlight, cmd.OrderID, rec.Status)
	}

	rec.DriverLocation = &order.Location{Latitude: cmd.Latitude, Longitude: cmd.Longitude}
	if err := s.orders.Put(ctx, cmd.UserID, cmd.OrderID, rec); err != nil {
		return order.Record{}, fmt.Errorf("update order %s location: %w", cmd.OrderID, err)
	}
	return rec, nil
}

func (s *Service) publishStatusChanged(ctx context.Context, uid string, rec order.Record, from order.Status) {
	if s.publisher == nil {
		return
	}

	changed := order.OrderStatusChanged{
		OrderID:   rec.ID,
		UserID:    uid,
		UserEmail: rec.UserEmail,
		From:      from,
		To:        rec.Status,
		ChangedAt: s.now(),
	}
	event, err := store.NewEvent(rec.ID, uid, order.EventOrderStatusChanged, changed)
	if err != nil {
		log.Printf("[Fulfillment] Failed to build OrderStatusChanged for %s: %v", rec.ID, err)
		return
	}
	if err := s.publisher.Publish(ctx, rec.ID, event); err != nil {
		log.Printf("[Fulfillment] Failed to publish OrderStatusChanged for %s: %v", rec.ID, err)
	}
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}
