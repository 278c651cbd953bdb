package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/tappass/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware API эмитента.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/tokens", func(r chi.Router) {
			r.Post("/", h.IssueToken)
			r.Get("/", h.ListTransactions)
			r.Get("/valid", h.ListValidTransactions)
			r.Post("/send", h.SendToken)
			r.Post("/execute", h.ExecuteToken)
		})

		r.Get("/shared", h.ListShared)

		r.Get("/payees", h.ListPayees)
		r.Post("/payees", h.AddPayee)

		r.Post("/redeem", h.RedeemToken)
		r.Get("/nfc", h.ScanPayload)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
