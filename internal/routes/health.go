package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/secure_wallet/internal/wallet"
)

// RegisterHealthRoutes adds the liveness/readiness endpoint. The service is
// healthy when the component is serving and every configured backend answers.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		backends, healthy := d.Backends.Health(c.UserContext())

		state := d.Component.State()
		if state != wallet.StateCreated {
			healthy = false
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"component": state.String(),
			"status":    backends,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
