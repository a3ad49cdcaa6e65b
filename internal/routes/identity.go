package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/identity"
)

// RegisterIdentityRoutes wires role lookup and assignment endpoints.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, logger *slog.Logger) {
	r.Get("/role", func(c *fiber.Ctx) error {
		caller := auth.Caller(c)
		role, err := ids.RoleOf(c.UserContext(), caller)
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"principal": caller,
			"role":      role,
		})
	})

	r.Get("/role/admin", func(c *fiber.Ctx) error {
		admin, err := ids.IsAdmin(c.UserContext(), auth.Caller(c))
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"admin": admin})
	})

	r.Put("/users/:principal/role", func(c *fiber.Ctx) error {
		target, err := identity.ParsePrincipal(c.Params("principal"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		var req struct {
			Role string `json:"role"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		role, err := identity.ParseRole(req.Role)
		if err != nil {
			return err
		}
		caller := auth.Caller(c)
		if err := ids.AssignRole(c.UserContext(), caller, target, role); err != nil {
			return err
		}
		logger.Info("identity.role assigned",
			slog.String("caller", caller.String()),
			slog.String("principal", target.String()),
			slog.Int("status", http.StatusOK),
		)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"principal": target,
			"role":      role,
		})
	})
}
