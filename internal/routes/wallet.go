package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/wallet"
)

// RegisterWalletRoutes wires balance endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/balance", h.Mine)
	r.Get("/users/:principal/balance", h.Balance)
}
