package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
)

const (
	MsgLoginRequired   = "Please login to place order"
	MsgPlacementFailed = "Failed to place order"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrPersistence     = errors.New("order persistence failed")
)

// Phase is the state of the current placement attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhasePersisting
	PhaseCommitted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseValidating:
		return "Validating"
	case PhasePersisting:
		return "Persisting"
	case PhaseCommitted:
		return "Committed"
	case PhaseFailed:
		return "Failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Store owns one session's cart, its placed-order history and the order
// placement transaction.
type Store struct {
	mu             sync.Mutex // guards cart, history, unconfirmed, currentOrderID, phase
	placeMu        sync.Mutex // one placement at a time
	cart           *cart.Cart
	history        []*order.Order
	unconfirmed    map[string]*order.Order // committed here, not yet in a snapshot
	currentOrderID string
	phase          Phase

	session  SessionProvider
	repo     Repository
	notifier Notifier
	now      func() time.Time
	onPhase  func(Phase)
}

type Option func(*Store)

// WithClock overrides time.Now, for order ids and dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPhaseHook is called on every phase change of a placement attempt.
func WithPhaseHook(fn func(Phase)) Option {
	return func(s *Store) { s.onPhase = fn }
}

func NewStore(session SessionProvider, repo Repository, notifier Notifier, opts ...Option) *Store {
	s := &Store{
		cart:        cart.New(),
		unconfirmed: make(map[string]*order.Order),
		session:     session,
		repo:        repo,
		notifier:    notifier,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddLine adds one unit of p.
func (s *Store) AddLine(p product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Add(p)
}

// RemoveLine removes one unit of the product; absent ids are ignored.
func (s *Store) RemoveLine(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Remove(productID)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
}

func (s *Store) QuantityOf(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.QuantityOf(productID)
}

func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

// Orders returns the session's order history, most recent first.
func (s *Store) Orders() []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Order, len(s.history))
	copy(out, s.history)
	return out
}

// CurrentOrder returns the id of the order being tracked, if any.
func (s *Store) CurrentOrder() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentOrderID, s.currentOrderID != ""
}

// SetCurrentOrder selects which order is tracked. An empty id clears it.
func (s *Store) SetCurrentOrder(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentOrderID = orderID
}

func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// PlaceOrder snapshots the cart, persists it as a Processing order and, once
// the write succeeds, records it in the history and removes the snapshotted
// lines from the cart. On failure the cart and history are untouched, an error
// notification is emitted and the returned id is empty; the error wraps
// ErrUnauthenticated or ErrPersistence.
func (s *Store) PlaceOrder(ctx context.Context) (string, error) {
	s.placeMu.Lock()
	defer s.placeMu.Unlock()
	defer s.setPhase(PhaseIdle)

	s.setPhase(PhaseValidating)
	who, ok := s.session.Current()
	if !ok || who.UID == "" {
		s.notifier.Notify(MsgLoginRequired, KindError)
		s.setPhase(PhaseFailed)
		return "", ErrUnauthenticated
	}

	now := s.now()
	s.mu.Lock()
	lines := s.cart.Lines()
	total := s.cart.Total()
	s.mu.Unlock()

	o := order.New(order.NewID(now), lines, total, now)
	rec := order.NewRecord(o, order.Owner{UID: who.UID, Email: who.Email, Name: who.Name})

	s.setPhase(PhasePersisting)
	if err := s.repo.Put(ctx, who.UID, o.ID, rec); err != nil {
		log.Printf("[Checkout] Failed to persist order %s for user %s: %v", o.ID, who.UID, err)
		s.notifier.Notify(MsgPlacementFailed, KindError)
		s.setPhase(PhaseFailed)
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.mu.Lock()
	s.history = prepend(s.history, o)
	s.unconfirmed[o.ID] = o
	s.currentOrderID = o.ID
	s.cart.Subtract(lines)
	s.mu.Unlock()

	log.Printf("[Checkout] Order %s placed for user %s (%d items, total %d)", o.ID, who.UID, o.ItemCount(), o.Total)
	s.setPhase(PhaseCommitted)
	return o.ID, nil
}

// ApplySnapshot replaces the history with the repository's view of the
// user's orders, newest first. Orders placed through this Store that the
// snapshot does not contain yet are kept: a snapshot read before the write
// landed must not hide them.
func (s *Store) ApplySnapshot(records []order.Record) {
	orders := make([]*order.Order, 0, len(records))
	for _, r := range records {
		orders = append(orders, r.Order())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		delete(s.unconfirmed, o.ID)
	}
	for _, o := range s.unconfirmed {
		orders = append(orders, o)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].Date.Equal(orders[j].Date) {
			return orders[i].Date.After(orders[j].Date)
		}
		return orders[i].ID > orders[j].ID
	})
	s.history = orders
}

// Track subscribes the history to the repository's snapshots for the current
// user. It returns a no-op cancel when nobody is logged in.
func (s *Store) Track(sub Subscriber) (cancel func()) {
	who, ok := s.session.Current()
	if !ok || who.UID == "" {
		return func() {}
	}
	return sub.Subscribe(who.UID, s.ApplySnapshot)
}

// prepend puts o at the head of history, dropping an older copy a pushed
// snapshot may already have delivered.
func prepend(history []*order.Order, o *order.Order) []*order.Order {
	out := make([]*order.Order, 0, len(history)+1)
	out = append(out, o)
	for _, h := range history {
		if h.ID != o.ID {
			out = append(out, h)
		}
	}
	return out
}

func (s *Store) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	if s.onPhase != nil {
		s.onPhase(p)
	}
}
