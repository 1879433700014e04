package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/storefront/internal/domain/order"
)

// MemoryOrderStore keeps orders in process and pushes snapshots to subscribers
// after every write.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]map[string]order.Record // uid -> order id -> record
	subs   map[string]map[int]func([]order.Record)
	nextID int
	now    func() time.Time
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders: make(map[string]map[string]order.Record),
		subs:   make(map[string]map[int]func([]order.Record)),
		now:    time.Now,
	}
}

func (s *MemoryOrderStore) Put(ctx context.Context, uid, orderID string, rec order.Record) error {
	if err := validateKey(uid, orderID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.orders[uid] == nil {
		s.orders[uid] = make(map[string]order.Record)
	}
	if existing, ok := s.orders[uid][orderID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.ID = orderID
	s.orders[uid][orderID] = rec
	snapshot := s.listLocked(uid)
	subs := make([]func([]order.Record), 0, len(s.subs[uid]))
	for _, fn := range s.subs[uid] {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

func (s *MemoryOrderStore) Get(ctx context.Context, uid, orderID string) (order.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[uid][orderID]
	if !ok {
		return order.Record{}, order.ErrOrderNotFound
	}
	return rec, nil
}

func (s *MemoryOrderStore) List(ctx context.Context, uid string) ([]order.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(uid), nil
}

// Subscribe delivers the current snapshot immediately and again after each Put
// for uid. Callbacks run on the writer's goroutine.
func (s *MemoryOrderStore) Subscribe(uid string, fn func([]order.Record)) (cancel func()) {
	s.mu.Lock()
	if s.subs[uid] == nil {
		s.subs[uid] = make(map[int]func([]order.Record))
	}
	id := s.nextID
	s.nextID++
	s.subs[uid][id] = fn
	snapshot := s.listLocked(uid)
	s.mu.Unlock()

	fn(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[uid], id)
		})
	}
}

func (s *MemoryOrderStore) listLocked(uid string) []order.Record {
	out := make([]order.Record, 0, len(s.orders[uid]))
	for _, rec := range s.orders[uid] {
		out = append(out, rec)
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders records by CreatedAt descending, then by id.
func SortNewestFirst(recs []order.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})
}
