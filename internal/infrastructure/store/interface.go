package store

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/domain/order"
)

var ErrInvalidKey = errors.New("uid and order id are required")

// OrderStore persists order documents under (uid, order id).
type OrderStore interface {
	// Put upserts the document. A zero CreatedAt is assigned by the store on
	// first write and preserved on later writes.
	Put(ctx context.Context, uid, orderID string, rec order.Record) error
	// Get returns order.ErrOrderNotFound when the document does not exist.
	Get(ctx context.Context, uid, orderID string) (order.Record, error)
	// List returns the user's orders, newest first.
	List(ctx context.Context, uid string) ([]order.Record, error)
}

// Lister is the part of OrderStore a Poller needs.
type Lister interface {
	List(ctx context.Context, uid string) ([]order.Record, error)
}

func validateKey(uid, orderID string) error {
	if uid == "" || orderID == "" {
		return ErrInvalidKey
	}
	return nil
}
