package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/payments"
)

// RegisterPaymentRoutes wires transfer endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, limiter fiber.Handler) {
	r.Post("/transfers", limiter, h.Transfer)
}
