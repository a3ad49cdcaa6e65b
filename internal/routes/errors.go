package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
	"github.com/rig-store/rig_ledger/internal/payments"
)

// ErrorHandler renders every error as {"error": message}. Domain errors get
// their status here so handlers can return them unchanged.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := classify(c, err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"error": message})
	}
}

func classify(c *fiber.Ctx, err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, identity.ErrUnauthorized):
		switch {
		case auth.Caller(c).IsAnonymous():
			return http.StatusUnauthorized, "authentication required"
		case errors.Is(err, identity.ErrAdminRequired):
			return http.StatusForbidden, "you must be an admin"
		case errors.Is(err, identity.ErrNotOwner):
			return http.StatusForbidden, "you must be an admin or the account owner"
		default:
			return http.StatusForbidden, "not permitted"
		}
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "amount must be a positive integer"
	case errors.Is(err, payments.ErrSelfTransfer),
		errors.Is(err, payments.ErrInvalidRecipient),
		errors.Is(err, ledger.ErrSameAccount),
		errors.Is(err, identity.ErrInvalidRole),
		errors.Is(err, identity.ErrInvalidPrincipal):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "deposit request not found"
	case errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict, "deposit request is no longer pending"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient funds"
	case errors.Is(err, ledger.ErrLockTimeout):
		return http.StatusServiceUnavailable, "ledger busy, retry later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
