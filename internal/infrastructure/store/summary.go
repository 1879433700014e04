package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/readmodel"
)

var ErrSummaryNotFound = errors.New("order summary not found")

// SummaryStore holds the order summaries maintained by the projector.
type SummaryStore interface {
	GetSummary(ctx context.Context, orderID string) (readmodel.OrderSummary, error)
	SetSummary(ctx context.Context, s readmodel.OrderSummary) error
	ListSummaries(ctx context.Context) ([]readmodel.OrderSummary, error)
}

type MemorySummaryStore struct {
	mu        sync.RWMutex
	summaries map[string]readmodel.OrderSummary
}

func NewMemorySummaryStore() *MemorySummaryStore {
	return &MemorySummaryStore{summaries: make(map[string]readmodel.OrderSummary)}
}

func (s *MemorySummaryStore) GetSummary(ctx context.Context, orderID string) (readmodel.OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[orderID]
	if !ok {
		return readmodel.OrderSummary{}, ErrSummaryNotFound
	}
	return sum, nil
}

func (s *MemorySummaryStore) SetSummary(ctx context.Context, sum readmodel.OrderSummary) error {
	if sum.OrderID == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.OrderID] = sum
	return nil
}

// ListSummaries returns every summary, most recently placed first.
func (s *MemorySummaryStore) ListSummaries(ctx context.Context) ([]readmodel.OrderSummary, error) {
	s.mu.RLock()
	out := make([]readmodel.OrderSummary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		out = append(out, sum)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.After(out[j].PlacedAt)
		}
		return out[i].OrderID > out[j].OrderID
	})
	return out, nil
}

const summariesSchema = `
CREATE TABLE IF NOT EXISTS order_summaries (
	order_id   TEXT        PRIMARY KEY,
	user_id    TEXT        NOT NULL,
	user_name  TEXT        NOT NULL DEFAULT '',
	user_email TEXT        NOT NULL DEFAULT '',
	item_count INTEGER     NOT NULL DEFAULT 0,
	total      INTEGER     NOT NULL DEFAULT 0,
	status     TEXT        NOT NULL,
	placed_at  TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL
);`

// PostgresSummaryStore keeps summaries in the order_summaries table.
type PostgresSummaryStore struct {
	db *sql.DB
}

func NewPostgresSummaryStore(db *sql.DB) *PostgresSummaryStore {
	return &PostgresSummaryStore{db: db}
}

func (s *PostgresSummaryStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, summariesSchema)
	return err
}

func (s *PostgresSummaryStore) GetSummary(ctx context.Context, orderID string) (readmodel.OrderSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT order_id, user_id, user_name, user_email, item_count, total, status, placed_at, updated_at
		 FROM order_summaries WHERE order_id = $1`,
		orderID,
	)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return readmodel.OrderSummary{}, ErrSummaryNotFound
	}
	return sum, err
}

func (s *PostgresSummaryStore) SetSummary(ctx context.Context, sum readmodel.OrderSummary) error {
	if sum.OrderID == "" {
		return ErrInvalidKey
	}
	var placedAt sql.NullTime
	if sum.Placed() {
		placedAt = sql.NullTime{Time: sum.PlacedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO order_summaries (order_id, user_id, user_name, user_email, item_count, total, status, placed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (order_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			user_name = EXCLUDED.user_name,
			user_email = EXCLUDED.user_email,
			item_count = EXCLUDED.item_count,
			total = EXCLUDED.total,
			status = EXCLUDED.status,
			placed_at = EXCLUDED.placed_at,
			updated_at = EXCLUDED.updated_at`,
		sum.OrderID, sum.UserID, sum.UserName, sum.UserEmail, sum.ItemCount, sum.Total,
		string(sum.Status), placedAt, sum.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert summary %s: %w", sum.OrderID, err)
	}
	return nil
}

func (s *PostgresSummaryStore) ListSummaries(ctx context.Context) ([]readmodel.OrderSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id, user_id, user_name, user_email, item_count, total, status, placed_at, updated_at
		 FROM order_summaries ORDER BY placed_at DESC NULLS LAST, order_id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []readmodel.OrderSummary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func scanSummary(sc scanner) (readmodel.OrderSummary, error) {
	var (
		sum      readmodel.OrderSummary
		status   string
		placedAt sql.NullTime
	)
	err := sc.Scan(&sum.OrderID, &sum.UserID, &sum.UserName, &sum.UserEmail,
		&sum.ItemCount, &sum.Total, &status, &placedAt, &sum.UpdatedAt)
	if err != nil {
		return readmodel.OrderSummary{}, err
	}
	sum.Status = order.Status(status)
	if placedAt.Valid {
		sum.PlacedAt = placedAt.Time.UTC()
	}
	sum.UpdatedAt = sum.UpdatedAt.UTC()
	return sum, nil
}
