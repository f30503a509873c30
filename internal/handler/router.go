package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/coffeeshop/internal/middleware"
	"github.com/mmeshcher/coffeeshop/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware кофейного магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	adminOnly := custommiddleware.RequireRole(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.With(h.authMiddleware.Middleware).Get("/me", h.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/profile", h.Me)
			r.Put("/profile", h.UpdateProfile)
			r.With(adminOnly).Get("/", h.ListUsers)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Use(adminOnly)

				r.Post("/", h.CreateProduct)
				r.Put("/{id}", h.UpdateProduct)
				r.Delete("/{id}", h.DeleteProduct)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateOrder)
			r.Get("/mine", h.GetMyOrders)
			r.Get("/my-orders", h.GetMyOrders)
			r.With(custommiddleware.RequirePrivileged).Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
			r.Patch("/{id}/cancel", h.CancelOrder)
			// Владелец может отменить заказ и через этот маршрут, права проверяет сервис.
			r.Patch("/{id}/status", h.UpdateOrderStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)
			r.With(h.authMiddleware.Middleware, custommiddleware.RequirePrivileged).Get("/stats", h.Stats)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
