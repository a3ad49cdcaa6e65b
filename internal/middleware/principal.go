package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/identity"
)

// Principal resolves the caller from the bearer token. Requests without an
// Authorization header proceed as the anonymous principal; a header that is
// present but invalid is rejected.
func Principal(verifier *auth.Verifier, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if authz == "" {
			auth.SetCaller(c, identity.Anonymous)
			return c.Next()
		}
		if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}

		caller, err := verifier.Verify(strings.TrimSpace(authz[7:]))
		if err != nil {
			logger.Debug("token rejected", slog.Any("error", err))
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		auth.SetCaller(c, caller)
		return c.Next()
	}
}
