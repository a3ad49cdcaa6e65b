package profile

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/logging"
)

func TestHandlerSaveAndLookup(t *testing.T) {
	h := NewHandler(NewService(NewMemoryRepository(), logging.Discard()))
	alice := identity.TestPrincipal("alice")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-Anonymous") == "" {
			auth.SetCaller(c, alice)
		}
		return c.Next()
	})
	app.Get("/profile", h.Mine)
	app.Put("/profile", h.Save)
	app.Get("/users/:principal/profile", h.Lookup)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/profile", nil))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 before save, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(fiber.MethodPut, "/profile", strings.NewReader(`{"name":"Alice"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if resp, err = app.Test(req); err != nil || resp.StatusCode != fiber.StatusOK {
		t.Fatalf("save: status=%v err=%v", resp, err)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/users/"+alice.String()+"/profile", nil))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	var got Profile
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Alice" {
		t.Fatalf("expected Alice, got %q", got.Name)
	}

	anon := httptest.NewRequest(fiber.MethodPut, "/profile", strings.NewReader(`{"name":"x"}`))
	anon.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	anon.Header.Set("X-Anonymous", "1")
	if resp, _ = app.Test(anon); resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous save, got %d", resp.StatusCode)
	}

	if resp, _ = app.Test(httptest.NewRequest(fiber.MethodGet, "/users/not-a-principal/profile", nil)); resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for malformed principal, got %d", resp.StatusCode)
	}
}
