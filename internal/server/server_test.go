package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/config"
	"github.com/rig-store/rig_ledger/internal/logging"
	"github.com/rig-store/rig_ledger/internal/routes"
)

func TestServerHealthWithInMemoryBackends(t *testing.T) {
	cfg := config.Config{
		AppName:           "test",
		Env:               "development",
		LockTimeout:       time.Second,
		TokenMaxAge:       time.Minute,
		ReconcileSchedule: "@every 1h",
	}
	srv, err := New(cfg, routes.Deps{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status map[string]string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status["postgres"] != "disabled" || body.Status["rabbitmq"] != "disabled" {
		t.Fatalf("unexpected health %+v", body.Status)
	}
}

func TestServerRequiresBackendsOutsideDev(t *testing.T) {
	cfg := config.Config{Env: "production", LockTimeout: time.Second, TokenMaxAge: time.Minute}
	if _, err := New(cfg, routes.Deps{Logger: logging.Discard()}); err == nil {
		t.Fatalf("expected error without database in production")
	}
}
