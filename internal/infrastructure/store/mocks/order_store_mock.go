package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/domain/order"
)

// MockOrderStore is an in-memory OrderStore that records calls for tests
type MockOrderStore struct {
	mu      sync.RWMutex
	records map[string]map[string]order.Record

	// For tracking calls in tests
	PutCalls    []PutCall
	PutErr      error
	PutCallback func(ctx context.Context, uid, orderID string, rec order.Record) error
	GetErr      error
	ListErr     error
	ListCalls   int
}

// PutCall records parameters passed to Put
type PutCall struct {
	UID     string
	OrderID string
	Record  order.Record
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		records:  make(map[string]map[string]order.Record),
		PutCalls: make([]PutCall, 0),
	}
}

// Put records the call, then applies PutCallback or PutErr before storing
func (m *MockOrderStore) Put(ctx context.Context, uid, orderID string, rec order.Record) error {
	m.mu.Lock()
	m.PutCalls = append(m.PutCalls, PutCall{UID: uid, OrderID: orderID, Record: rec})
	cb := m.PutCallback
	putErr := m.PutErr
	m.mu.Unlock()

	if cb != nil {
		if err := cb(ctx, uid, orderID, rec); err != nil {
			return err
		}
	}
	if putErr != nil {
		return putErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[uid] == nil {
		m.records[uid] = make(map[string]order.Record)
	}
	m.records[uid][orderID] = rec
	return nil
}

func (m *MockOrderStore) Get(ctx context.Context, uid, orderID string) (order.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return order.Record{}, m.GetErr
	}
	rec, ok := m.records[uid][orderID]
	if !ok {
		return order.Record{}, order.ErrOrderNotFound
	}
	return rec, nil
}

func (m *MockOrderStore) List(ctx context.Context, uid string) ([]order.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]order.Record, 0, len(m.records[uid]))
	for _, rec := range m.records[uid] {
		out = append(out, rec)
	}
	return out, nil
}

// SetRecord stores a record directly for testing
func (m *MockOrderStore) SetRecord(uid string, rec order.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[uid] == nil {
		m.records[uid] = make(map[string]order.Record)
	}
	m.records[uid][rec.ID] = rec
}

// Calls returns a copy of the recorded Put calls
func (m *MockOrderStore) Calls() []PutCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PutCall, len(m.PutCalls))
	copy(out, m.PutCalls)
	return out
}

// MockPublisher records published events
type MockPublisher struct {
	mu         sync.Mutex
	Published  []Published
	PublishErr error
}

type Published struct {
	Key   string
	Event any
}

func (p *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, Published{Key: key, Event: event})
	return p.PublishErr
}
