package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/congo-pay/secure_wallet/internal/config"
	"github.com/congo-pay/secure_wallet/internal/infra"
	"github.com/congo-pay/secure_wallet/internal/middleware"
	"github.com/congo-pay/secure_wallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	Component *wallet.Component
	Backends  *infra.Backends
	Logger    *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Component == nil {
		return fmt.Errorf("wallet component is required")
	}
	if d.Backends == nil {
		d.Backends = &infra.Backends{}
	}
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDevelopment() {
		if d.Backends.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Backends.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLog(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	handler := wallet.NewHandler(d.Component, d.Cfg.MaxBufferSize)
	RegisterSessionRoutes(api, handler,
		middleware.InvokeRateLimit(d.Backends.Cache, d.Cfg.InvokeRateLimit, d.Logger),
		middleware.Idempotency(d.Backends.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)

	return nil
}
