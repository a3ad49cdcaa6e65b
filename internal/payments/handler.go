package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

// Transfer moves funds from the caller to the requested recipient.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		if err = ledger.AmountDecodeError(err); errors.Is(err, ledger.ErrInvalidAmount) {
			return err
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	recipient, err := identity.ParsePrincipal(req.Recipient)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		Caller:    auth.Caller(c),
		Recipient: recipient,
		Amount:    req.Amount,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction":  res.Transaction,
		"from_balance": res.FromBalance,
		"to_balance":   res.ToBalance,
	})
}
