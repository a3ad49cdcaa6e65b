package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rig-store/rig_ledger/internal/config"
	"github.com/rig-store/rig_ledger/internal/reconcile"
	"github.com/rig-store/rig_ledger/internal/routes"
)

// Server wraps the Fiber application and the background reconciliation job.
type Server struct {
	app       *fiber.App
	cfg       config.Config
	backends  routes.Backends
	reconcile *reconcile.Job
	logger    *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, deps routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: routes.ErrorHandler(deps.Logger),
	})

	deps.Cfg = cfg
	backends, err := routes.Setup(app, deps)
	if err != nil {
		return nil, err
	}

	return &Server{
		app:       app,
		cfg:       cfg,
		backends:  backends,
		reconcile: reconcile.New(backends.Ledger, deps.Logger),
		logger:    deps.Logger,
	}, nil
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the reconciliation schedule and then the HTTP server.
func (s *Server) Listen() error {
	if err := s.reconcile.Start(s.cfg.ReconcileSchedule); err != nil {
		return err
	}
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server, waits for a running audit and
// releases the event publisher.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)

	select {
	case <-s.reconcile.Stop().Done():
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}

	if closer, ok := s.backends.Notifier.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			s.logger.Warn("close notifier", slog.Any("error", cerr))
		}
	}
	return err
}
