package query

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/readmodel"
)

// Stats aggregates the projected summaries for the admin dashboard.
// Revenue excludes cancelled orders.
type Stats struct {
	Orders   int                  `json:"orders"`
	Revenue  int                  `json:"revenue"`
	ByStatus map[order.Status]int `json:"by_status"`
}

type Handler struct {
	summaries store.SummaryStore
}

func NewHandler(summaries store.SummaryStore) *Handler {
	return &Handler{summaries: summaries}
}

func (h *Handler) GetOrder(ctx context.Context, orderID string) (readmodel.OrderSummary, bool, error) {
	sum, err := h.summaries.GetSummary(ctx, orderID)
	if errors.Is(err, store.ErrSummaryNotFound) {
		return readmodel.OrderSummary{}, false, nil
	}
	if err != nil {
		return readmodel.OrderSummary{}, false, err
	}
	return sum, true, nil
}

// ListOrders returns summaries newest first. An empty status matches all.
func (h *Handler) ListOrders(ctx context.Context, status order.Status) ([]readmodel.OrderSummary, error) {
	all, err := h.summaries.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	out := make([]readmodel.OrderSummary, 0, len(all))
	for _, sum := range all {
		if sum.Status == status {
			out = append(out, sum)
		}
	}
	return out, nil
}

func (h *Handler) ListOrdersByUser(ctx context.Context, userID string) ([]readmodel.OrderSummary, error) {
	all, err := h.summaries.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]readmodel.OrderSummary, 0)
	for _, sum := range all {
		if sum.UserID == userID {
			out = append(out, sum)
		}
	}
	return out, nil
}

func (h *Handler) Stats(ctx context.Context) (Stats, error) {
	all, err := h.summaries.ListSummaries(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{ByStatus: make(map[order.Status]int)}
	for _, sum := range all {
		stats.Orders++
		stats.ByStatus[sum.Status]++
		if sum.Status != order.StatusCancelled {
			stats.Revenue += sum.Total
		}
	}
	return stats, nil
}
