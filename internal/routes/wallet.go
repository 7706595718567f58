package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/secure_wallet/internal/wallet"
)

// RegisterSessionRoutes wires the boundary call surface. The invoke route is
// wrapped by the given per-command middleware.
func RegisterSessionRoutes(r fiber.Router, h *wallet.Handler, invoke ...fiber.Handler) {
	r.Post("/sessions", h.OpenSession)
	r.Delete("/sessions/:sessionId", h.CloseSession)

	handlers := append(append([]fiber.Handler{}, invoke...), h.Invoke)
	r.Post("/sessions/:sessionId/commands/:commandId", handlers...)
}
