package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/rig-store/rig_ledger/internal/auth"
	"github.com/rig-store/rig_ledger/internal/config"
	"github.com/rig-store/rig_ledger/internal/funding"
	"github.com/rig-store/rig_ledger/internal/history"
	"github.com/rig-store/rig_ledger/internal/identity"
	"github.com/rig-store/rig_ledger/internal/ledger"
	"github.com/rig-store/rig_ledger/internal/middleware"
	"github.com/rig-store/rig_ledger/internal/notification"
	"github.com/rig-store/rig_ledger/internal/payments"
	"github.com/rig-store/rig_ledger/internal/profile"
	"github.com/rig-store/rig_ledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Broker *amqp.Connection
	Logger *slog.Logger
}

// Backends exposes what Setup built that outlives request handling.
type Backends struct {
	Ledger   ledger.Ledger
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Backends, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Backends{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return Backends{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	app.Use(middleware.Principal(auth.NewVerifier(d.Cfg.TokenMaxAge), d.Logger))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Stores
	var (
		ledgerBackend ledger.Ledger
		roleRepo      identity.Repository
		profileRepo   profile.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB, ledger.WithLockTimeout(d.Cfg.LockTimeout))
		roleRepo = identity.NewPostgresRepository(d.DB)
		profileRepo = profile.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory(ledger.WithLockTimeout(d.Cfg.LockTimeout))
		roleRepo = identity.NewMemoryRepository()
		profileRepo = profile.NewMemoryRepository()
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Broker != nil {
		publisher, err := notification.NewAMQPNotifier(d.Broker, d.Cfg.EventsExchange, d.Logger)
		if err != nil {
			return Backends{}, err
		}
		notifier = publisher
	}

	// Services and handlers
	identitySvc := identity.NewService(roleRepo, d.Logger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := identitySvc.Bootstrap(ctx, d.Cfg.AdminPrincipals); err != nil {
		return Backends{}, err
	}

	profileSvc := profile.NewService(profileRepo, d.Logger)
	walletSvc := wallet.NewService(identitySvc, ledgerBackend)
	fundingSvc := funding.NewService(identitySvc, ledgerBackend, notifier, d.Logger)
	paymentSvc := payments.NewService(ledgerBackend, notifier, d.Logger)
	historySvc := history.NewService(identitySvc, ledgerBackend)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID := middleware.RequestIDOf(c)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"caller":     auth.Caller(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identitySvc, d.Logger)
	RegisterProfileRoutes(api, profile.NewHandler(profileSvc))
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterFundingRoutes(api, funding.NewHandler(fundingSvc),
		middleware.MutationRateLimit(d.Cache, "deposits", d.Cfg.MutationRateLimit))
	RegisterPaymentRoutes(api, payments.NewHandler(paymentSvc),
		middleware.MutationRateLimit(d.Cache, "transfers", d.Cfg.MutationRateLimit))
	RegisterHistoryRoutes(api, history.NewHandler(historySvc))

	return Backends{Ledger: ledgerBackend, Notifier: notifier}, nil
}
