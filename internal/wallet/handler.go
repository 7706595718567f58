package wallet

import (
	"math"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/secure_wallet/internal/boundary"
	"github.com/congo-pay/secure_wallet/internal/dispatch"
)

// DefaultMaxBufferSize bounds caller-requested output buffers.
const DefaultMaxBufferSize = 4096

// Handler exposes the boundary call surface over HTTP.
type Handler struct {
	component *Component
	maxBuffer int
}

// NewHandler builds a boundary HTTP handler. A non-positive maxBuffer selects
// DefaultMaxBufferSize.
func NewHandler(component *Component, maxBuffer int) *Handler {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBufferSize
	}
	return &Handler{component: component, maxBuffer: maxBuffer}
}

// OpenSession opens a caller session. The body is optional; if present its
// parameters must all be none.
func (h *Handler) OpenSession(c *fiber.Ctx) error {
	var req InvokeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, boundary.Wrap(boundary.CodeBadParameters, err))
		}
	}
	params, err := DecodeBundle(req.Params, h.maxBuffer)
	if err != nil {
		return fail(c, err)
	}
	session, err := h.component.OpenSession(c.UserContext(), params)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(SessionResponse{
		SessionID: session.ID,
		OpenedAt:  session.OpenedAt.Format(time.RFC3339Nano),
	})
}

// CloseSession closes the session named in the path.
func (h *Handler) CloseSession(c *fiber.Ctx) error {
	if err := h.component.CloseSession(c.UserContext(), c.Params("sessionId")); err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(InvokeResponse{Code: boundary.CodeSuccess.Hex()})
}

// Invoke runs one wallet command for the session named in the path.
func (h *Handler) Invoke(c *fiber.Ctx) error {
	cmdID, err := c.ParamsInt("commandId")
	if err != nil || cmdID < 0 || uint64(cmdID) > math.MaxUint32 {
		return fail(c, boundary.Errorf(boundary.CodeBadParameters, "%w: %q", dispatch.ErrUnknownCommand, c.Params("commandId")))
	}

	var req InvokeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, boundary.Wrap(boundary.CodeBadParameters, err))
		}
	}
	params, err := DecodeBundle(req.Params, h.maxBuffer)
	if err != nil {
		return fail(c, err)
	}

	out, err := h.component.Invoke(c.UserContext(), c.Params("sessionId"), dispatch.CommandID(cmdID), params)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(InvokeResponse{
		Code:   boundary.CodeSuccess.Hex(),
		Params: EncodeOutputs(out),
	})
}

// StatusFor maps a boundary code to an HTTP status.
func StatusFor(code boundary.Code) int {
	switch code {
	case boundary.CodeSuccess:
		return http.StatusOK
	case boundary.CodeBadParameters:
		return http.StatusBadRequest
	case boundary.CodeItemNotFound:
		return http.StatusNotFound
	case boundary.CodeBadState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	code := boundary.CodeOf(err)
	return c.Status(StatusFor(code)).JSON(InvokeResponse{
		Code:  code.Hex(),
		Error: err.Error(),
	})
}
