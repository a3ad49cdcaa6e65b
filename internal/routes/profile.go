package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/profile"
)

// RegisterProfileRoutes wires profile endpoints.
func RegisterProfileRoutes(r fiber.Router, h *profile.Handler) {
	r.Get("/profile", h.Mine)
	r.Put("/profile", h.Save)
	r.Get("/users/:principal/profile", h.Lookup)
}
