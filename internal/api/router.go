package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter(h *Handler, mw *Middleware) http.Handler {
	mux := chi.NewRouter()
	mux.Use(mw.Log, mw.Recover, mw.Cors)

	mux.Route("/api", func(r chi.Router) {
		r.HandleFunc("/health", h.HealthHandler)
		r.HandleFunc("/swagger/*", httpSwagger.Handler())

		r.Route("/invoices", func(r chi.Router) {
			r.Use(mw.BearerAuth)
			r.Post("/", h.CreateInvoice)
			r.Get("/", h.Invoices)
			r.Get("/stats", h.InvoiceStats)
			r.Get("/{id}", h.Invoice)
			r.Put("/{id}", h.UpdateInvoice)
			r.Post("/{id}/status", h.ChangeStatus)
			r.Delete("/{id}", h.DeleteInvoice)
		})
	})

	return mux
}
