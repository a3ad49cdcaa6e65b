package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/identity"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mine returns the caller's balance.
func (h *Handler) Mine(c *fiber.Ctx) error {
	balance, err := h.service.Own(c.UserContext(), auth.Caller(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(balance)
}

// Balance returns the balance of the principal in the path.
func (h *Handler) Balance(c *fiber.Ctx) error {
	owner, err := identity.ParsePrincipal(c.Params("principal"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.Of(c.UserContext(), auth.Caller(c), owner)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(balance)
}
