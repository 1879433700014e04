package api

import (
	"log"
	"net/http"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/query"
	"github.com/go-chi/chi/v5"
)

// AdminHandlers serves the projected order summaries.
type AdminHandlers struct {
	queries *query.Handler
}

func NewAdminHandlers(queries *query.Handler) *AdminHandlers {
	return &AdminHandlers{queries: queries}
}

// ListOrders handles GET /admin/orders?status=&user=
func (h *AdminHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if uid := r.URL.Query().Get("user"); uid != "" {
		list, err := h.queries.ListOrdersByUser(ctx, uid)
		if err != nil {
			log.Printf("[API] Failed to list summaries for %s: %v", uid, err)
			respondJSONError(w, "Failed to list orders", http.StatusInternalServerError)
			return
		}
		respondJSON(w, http.StatusOK, list)
		return
	}

	var status order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := order.ParseStatus(raw)
		if err != nil {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = s
	}

	list, err := h.queries.ListOrders(ctx, status)
	if err != nil {
		log.Printf("[API] Failed to list summaries: %v", err)
		respondJSONError(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetOrder handles GET /admin/orders/{orderID}
func (h *AdminHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	sum, found, err := h.queries.GetOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("[API] Failed to load summary %s: %v", orderID, err)
		respondJSONError(w, "Failed to load order", http.StatusInternalServerError)
		return
	}
	if !found {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

// Stats handles GET /admin/stats
func (h *AdminHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queries.Stats(r.Context())
	if err != nil {
		log.Printf("[API] Failed to compute stats: %v", err)
		respondJSONError(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
