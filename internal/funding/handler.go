package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/ledger"
)

// Handler exposes HTTP endpoints for the deposit workflow.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Amount int64 `json:"amount"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type settlementResponse struct {
	Request     ledger.DepositRequest `json:"request"`
	Transaction ledger.Transaction    `json:"transaction"`
	Balance     int64                 `json:"balance"`
}

// Create files a deposit request for the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		if err = ledger.AmountDecodeError(err); errors.Is(err, ledger.ErrInvalidAmount) {
			return err
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	deposit, err := h.service.Create(c.UserContext(), auth.Caller(c), req.Amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":     deposit.ID,
		"status": deposit.Status,
	})
}

// List returns all deposit requests to an admin.
func (h *Handler) List(c *fiber.Ctx) error {
	deposits, err := h.service.List(c.UserContext(), auth.Caller(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(deposits)
}

// Mine returns the caller's deposit requests.
func (h *Handler) Mine(c *fiber.Ctx) error {
	deposits, err := h.service.Mine(c.UserContext(), auth.Caller(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(deposits)
}

// Approve settles the request in the path.
func (h *Handler) Approve(c *fiber.Ctx) error {
	res, err := h.service.Approve(c.UserContext(), auth.Caller(c), depositID(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(settlementResponse(res))
}

// Reject closes the request in the path with an optional reason.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req rejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	res, err := h.service.Reject(c.UserContext(), auth.Caller(c), depositID(c), req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(settlementResponse(res))
}

// depositID copies the path id out of fiber's reusable request buffer.
func depositID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}
