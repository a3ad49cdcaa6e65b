package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/identity"
)

const callerKey = "caller_principal"

// SetCaller records the authenticated principal on the request.
func SetCaller(c *fiber.Ctx, p identity.Principal) {
	c.Locals(callerKey, p)
}

// Caller returns the principal of the request, or the anonymous principal
// when none was recorded.
func Caller(c *fiber.Ctx) identity.Principal {
	if p, ok := c.Locals(callerKey).(identity.Principal); ok && p != "" {
		return p
	}
	return identity.Anonymous
}
