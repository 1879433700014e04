package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/fulfillment"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/notification"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const cartSessionCookie = "cart_session"

type Handlers struct {
	catalog     *catalog.Catalog
	sessions    *Sessions
	orders      store.OrderStore
	fulfillment *fulfillment.Service
}

func NewHandlers(cat *catalog.Catalog, sessions *Sessions, orders store.OrderStore, ful *fulfillment.Service) *Handlers {
	return &Handlers{
		catalog:     cat,
		sessions:    sessions,
		orders:      orders,
		fulfillment: ful,
	}
}

// Products

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	kind := product.Kind(r.URL.Query().Get("type"))
	if kind != "" && kind != product.KindMedicine && kind != product.KindPet {
		respondJSONError(w, "type must be medicine or pet", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.List(kind))
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Cart

type CartResponse struct {
	Items     []cart.Line `json:"items"`
	ItemCount int         `json:"item_count"`
	Total     int         `json:"total"`
}

type AddToCartRequest struct {
	ProductID string `json:"product_id"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.existingSession(r)
	if !ok {
		respondJSON(w, http.StatusOK, emptyCart())
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sess.Store))
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.catalog.Get(req.ProductID)
	if err != nil {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}

	sess := h.session(w, r)
	if err := sess.Store.AddLine(p); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sess.Store))
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.existingSession(r)
	if !ok {
		respondJSON(w, http.StatusOK, emptyCart())
		return
	}
	sess.Store.RemoveLine(chi.URLParam(r, "id"))
	respondJSON(w, http.StatusOK, cartResponse(sess.Store))
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.existingSession(r)
	if !ok {
		respondJSON(w, http.StatusOK, emptyCart())
		return
	}
	sess.Store.Clear()
	respondJSON(w, http.StatusOK, cartResponse(sess.Store))
}

func (h *Handlers) GetBill(w http.ResponseWriter, r *http.Request) {
	total := 0
	if sess, ok := h.existingSession(r); ok {
		total = sess.Store.Total()
	}
	respondJSON(w, http.StatusOK, checkout.ComputeBill(total))
}

// Orders

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.existingSession(r)
	if !ok {
		respondJSONError(w, checkout.MsgLoginRequired, http.StatusUnauthorized)
		return
	}

	orderID, err := sess.Store.PlaceOrder(r.Context())
	switch {
	case errors.Is(err, checkout.ErrUnauthenticated):
		respondJSONError(w, checkout.MsgLoginRequired, http.StatusUnauthorized)
		return
	case err != nil:
		respondJSONError(w, checkout.MsgPlacementFailed, http.StatusBadGateway)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"order_id": orderID})
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.existingSession(r)
	if !ok {
		respondJSON(w, http.StatusOK, []*order.Order{})
		return
	}
	respondJSON(w, http.StatusOK, sess.Store.Orders())
}

// GetCurrentOrder returns the persisted document of the order being tracked,
// including its latest status and driver location.
func (h *Handlers) GetCurrentOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, ok := h.sessions.ForUser(id).Store.CurrentOrder()
	if !ok {
		respondJSONError(w, "No order is being tracked", http.StatusNotFound)
		return
	}

	rec, err := h.orders.Get(r.Context(), id.UID, orderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[API] Failed to load order %s: %v", orderID, err)
		respondJSONError(w, "Failed to load order", http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// GetNotifications drains the session's toast feed.
func (h *Handlers) GetNotifications(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.existingSession(r)
	if !ok {
		respondJSON(w, http.StatusOK, []notification.Message{})
		return
	}
	respondJSON(w, http.StatusOK, sess.Feed.Drain())
}

// Fulfillment (admin)

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.fulfillment.UpdateStatus(r.Context(), fulfillment.UpdateStatus{
		UserID:  chi.URLParam(r, "uid"),
		OrderID: chi.URLParam(r, "orderID"),
		Status:  order.Status(req.Status),
	})
	if err != nil {
		respondFulfillmentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handlers) UpdateDriverLocation(w http.ResponseWriter, r *http.Request) {
	var req UpdateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.fulfillment.UpdateDriverLocation(r.Context(), fulfillment.UpdateDriverLocation{
		UserID:    chi.URLParam(r, "uid"),
		OrderID:   chi.URLParam(r, "orderID"),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		respondFulfillmentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func respondFulfillmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		respondJSONError(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, order.ErrUnknownStatus), errors.Is(err, fulfillment.ErrInvalidLocation):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrOrderDelivered),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderNotInFlight):
		respondJSONError(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("[API] Fulfillment update failed: %v", err)
		respondJSONError(w, "Failed to update order", http.StatusBadGateway)
	}
}

// existingSession resolves the caller's Session without creating an
// anonymous one, so reads from unknown visitors allocate nothing.
func (h *Handlers) existingSession(r *http.Request) (*Session, bool) {
	if id, ok := middleware.GetIdentity(r.Context()); ok {
		return h.sessions.ForUser(id), true
	}
	if c, err := r.Cookie(cartSessionCookie); err == nil && c.Value != "" {
		return h.sessions.Anonymous(c.Value)
	}
	return nil, false
}

// session resolves the caller's Session: the user's when a valid token is
// present, otherwise the one named by the cart_session cookie, which is
// issued on first contact. Only cart mutations that add state call it.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) *Session {
	if id, ok := middleware.GetIdentity(r.Context()); ok {
		return h.sessions.ForUser(id)
	}

	if c, err := r.Cookie(cartSessionCookie); err == nil && c.Value != "" {
		return h.sessions.ForAnonymous(c.Value)
	}

	cartID := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     cartSessionCookie,
		Value:    cartID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return h.sessions.ForAnonymous(cartID)
}

func emptyCart() CartResponse {
	return CartResponse{Items: []cart.Line{}}
}

func cartResponse(s *checkout.Store) CartResponse {
	return CartResponse{
		Items:     s.Lines(),
		ItemCount: s.ItemCount(),
		Total:     s.Total(),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}
