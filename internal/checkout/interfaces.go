package checkout

import (
	"context"

	"github.com/example/storefront/internal/domain/order"
)

// Identity is the authenticated user a session is bound to. An empty UID means
// nobody is logged in.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SessionProvider reports the latest known identity without blocking.
type SessionProvider interface {
	Current() (Identity, bool)
}

// Repository persists order documents. Put has upsert semantics and must be
// durable before it returns nil.
type Repository interface {
	Put(ctx context.Context, uid, orderID string, rec order.Record) error
}

// Subscriber is implemented by repositories that can push order snapshots.
// fn receives the full list of the user's orders after every change; the
// returned func stops delivery.
type Subscriber interface {
	Subscribe(uid string, fn func([]order.Record)) (cancel func())
}

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notifier receives short user-facing messages. Calls are fire-and-forget.
type Notifier interface {
	Notify(message string, kind Kind)
}
