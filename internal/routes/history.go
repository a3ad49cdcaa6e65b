package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/history"
)

// RegisterHistoryRoutes wires transaction log endpoints.
func RegisterHistoryRoutes(r fiber.Router, h *history.Handler) {
	r.Get("/transactions", h.All)
	r.Get("/users/:principal/transactions", h.User)
}
