package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/go-redis/redis/v8"
)

const defaultPrefix = "storefront"

// OrderStore keeps each user's orders in one hash (order id -> JSON document)
// and announces every write on a per-user channel.
type OrderStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

type Option func(*OrderStore)

func WithPrefix(prefix string) Option {
	return func(s *OrderStore) { s.prefix = prefix }
}

func NewOrderStore(client *redis.Client, opts ...Option) *OrderStore {
	s := &OrderStore{client: client, prefix: defaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrderStore) ordersKey(uid string) string {
	return fmt.Sprintf("%s:orders:%s", s.prefix, uid)
}

func (s *OrderStore) channel(uid string) string {
	return fmt.Sprintf("%s:orders-changed:%s", s.prefix, uid)
}

// Put upserts the document, keeping the first CreatedAt, and publishes the
// order id on the user's channel.
func (s *OrderStore) Put(ctx context.Context, uid, orderID string, rec order.Record) error {
	if uid == "" || orderID == "" {
		return store.ErrInvalidKey
	}
	key := s.ordersKey(uid)
	rec.ID = orderID

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := tx.HGet(ctx, key, orderID).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = s.now().UTC()
			}
		case err != nil:
			return err
		default:
			var prev order.Record
			if err := json.Unmarshal([]byte(existing), &prev); err != nil {
				return fmt.Errorf("unmarshal stored order %s: %w", orderID, err)
			}
			rec.CreatedAt = prev.CreatedAt
		}

		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal order %s: %w", orderID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, orderID, doc)
			pipe.Publish(ctx, s.channel(uid), orderID)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("put order %s: %w", orderID, err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, uid, orderID string) (order.Record, error) {
	raw, err := s.client.HGet(ctx, s.ordersKey(uid), orderID).Result()
	if errors.Is(err, redis.Nil) {
		return order.Record{}, order.ErrOrderNotFound
	}
	if err != nil {
		return order.Record{}, err
	}

	var rec order.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return order.Record{}, fmt.Errorf("unmarshal order %s: %w", orderID, err)
	}
	return rec, nil
}

func (s *OrderStore) List(ctx context.Context, uid string) ([]order.Record, error) {
	all, err := s.client.HGetAll(ctx, s.ordersKey(uid)).Result()
	if err != nil {
		return nil, err
	}

	recs := make([]order.Record, 0, len(all))
	for id, raw := range all {
		var rec order.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal order %s: %w", id, err)
		}
		recs = append(recs, rec)
	}
	store.SortNewestFirst(recs)
	return recs, nil
}

// Subscribe pushes the user's full order list once the channel subscription
// is confirmed and again on every change message.
func (s *OrderStore) Subscribe(uid string, fn func([]order.Record)) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	pubsub := s.client.Subscribe(ctx, s.channel(uid))
	done := make(chan struct{})

	go func() {
		defer close(done)
		if _, err := pubsub.Receive(ctx); err != nil {
			if ctx.Err() == nil {
				log.Printf("[OrderStore] Redis subscribe for user %s failed: %v", uid, err)
			}
			return
		}
		s.deliver(ctx, uid, fn)

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.deliver(ctx, uid, fn)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			pubsub.Close()
			<-done
		})
	}
}

func (s *OrderStore) deliver(ctx context.Context, uid string, fn func([]order.Record)) {
	recs, err := s.List(ctx, uid)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[OrderStore] Failed to load orders for user %s: %v", uid, err)
		}
		return
	}
	fn(recs)
}

// Connect opens a client and verifies the server answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
