package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/barbershop-ledger/internal/metrics"
	custommiddleware "github.com/mmeshcher/barbershop-ledger/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.Instrument)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.With(h.loginLimiter.Middleware).Post("/session", h.Login)
		r.Delete("/session", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/clients", h.GetClients)
			r.Post("/clients", h.CreateClient)
			r.Put("/clients/{id}", h.UpdateClient)
			r.Delete("/clients/{id}", h.DeleteClient)

			r.Get("/services", h.GetServices)
			r.Post("/services", h.CreateService)
			r.Put("/services/{id}", h.UpdateService)
			r.Delete("/services/{id}", h.DeleteService)

			r.Get("/appointments", h.GetAppointments)
			r.Post("/appointments", h.CreateAppointment)
			r.Get("/appointments/{id}", h.GetAppointment)
			r.Post("/appointments/{id}/complete", h.CompleteAppointment)
			r.Post("/appointments/{id}/cancel", h.CancelAppointment)

			r.Get("/ledger", h.GetEntries)
			r.Post("/ledger", h.CreateEntry)
			r.Get("/ledger/balance", h.GetBalance)
			r.Delete("/ledger/{id}", h.DeleteEntry)

			r.Get("/dashboard", h.GetDashboard)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
