package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/funding"
)

// RegisterFundingRoutes wires the deposit workflow endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, limiter fiber.Handler) {
	r.Post("/deposits", limiter, h.Create)
	r.Get("/deposits", h.List)
	r.Get("/deposits/mine", h.Mine)
	r.Post("/deposits/:id/approve", h.Approve)
	r.Post("/deposits/:id/reject", h.Reject)
}
