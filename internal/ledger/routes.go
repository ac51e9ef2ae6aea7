package ledger

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/clients/{id}/balances", h.List)
	r.Get("/clients/{id}/balance", h.Show)
}
