package api

import (
	"net/http"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, adminHandlers *AdminHandlers, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.OptionalAuthMiddleware(jwtService))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandlers.Register)
		r.Post("/login", authHandlers.Login)
		r.Post("/logout", authHandlers.Logout)
		r.Post("/refresh", authHandlers.Refresh)
		r.With(middleware.AuthMiddleware(jwtService)).Get("/me", authHandlers.Me)
	})

	r.Get("/products", handlers.GetProducts)
	r.Get("/products/{id}", handlers.GetProduct)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", handlers.GetCart)
		r.Delete("/", handlers.ClearCart)
		r.Get("/bill", handlers.GetBill)
		r.Post("/items", handlers.AddToCart)
		r.Delete("/items/{id}", handlers.RemoveFromCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handlers.PlaceOrder)
		r.Get("/", handlers.GetOrders)
		r.With(middleware.AuthMiddleware(jwtService)).Get("/current", handlers.GetCurrentOrder)
	})

	r.Get("/notifications", handlers.GetNotifications)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService))
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Get("/stats", adminHandlers.Stats)
		r.Get("/orders", adminHandlers.ListOrders)
		r.Get("/orders/{orderID}", adminHandlers.GetOrder)
		r.Post("/orders/{uid}/{orderID}/status", handlers.UpdateOrderStatus)
		r.Post("/orders/{uid}/{orderID}/location", handlers.UpdateDriverLocation)
	})

	return r
}
