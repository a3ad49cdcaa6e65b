package history

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/identity"
)

// Handler exposes the transaction log.
type Handler struct {
	service *Service
}

// NewHandler builds a history HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// User lists the transactions of the principal in the path.
func (h *Handler) User(c *fiber.Ctx) error {
	owner, err := identity.ParsePrincipal(c.Params("principal"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	txs, err := h.service.For(c.UserContext(), auth.Caller(c), owner)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(txs)
}

// All lists every transaction.
func (h *Handler) All(c *fiber.Ctx) error {
	txs, err := h.service.All(c.UserContext(), auth.Caller(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(txs)
}
