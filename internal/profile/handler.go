package profile

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/identity"
)

// Handler exposes profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a profile HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type saveRequest struct {
	Name *string `json:"name"`
}

// Mine returns the caller's profile, or 204 when none was saved.
func (h *Handler) Mine(c *fiber.Ctx) error {
	return h.render(c, auth.Caller(c))
}

// Lookup returns the profile of the principal in the path.
func (h *Handler) Lookup(c *fiber.Ctx) error {
	owner, err := identity.ParsePrincipal(c.Params("principal"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.render(c, owner)
}

func (h *Handler) render(c *fiber.Ctx, owner identity.Principal) error {
	p, ok, err := h.service.Get(c.UserContext(), owner)
	if err != nil {
		return err
	}
	if !ok {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.Status(http.StatusOK).JSON(p)
}

// Save upserts the caller's profile.
func (h *Handler) Save(c *fiber.Ctx) error {
	var req saveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Name == nil {
		return fiber.NewError(http.StatusBadRequest, "name is required")
	}
	p := Profile{Name: *req.Name}
	if err := h.service.SaveOwn(c.UserContext(), auth.Caller(c), p); err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			return fiber.NewError(http.StatusUnauthorized, "sign in to save a profile")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(p)
}
