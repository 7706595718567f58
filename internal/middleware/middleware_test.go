package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/secure_wallet/internal/logging"
)

const commandRoute = "/sessions/:sessionId/commands/:commandId"

func newCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return mr, cache
}

func setupIdempotentApp(t *testing.T, cache *redis.Client) (*fiber.App, *int64) {
	t.Helper()
	var calls int64
	app := fiber.New()
	app.Post(commandRoute, Idempotency(cache, time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		n := atomic.AddInt64(&calls, 1)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"call": n})
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	return postBody(t, app, path, key, "{}")
}

func postBody(t *testing.T, app *fiber.App, path, key, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(payload)
}

func TestIdempotencyHeaderIsOptional(t *testing.T) {
	_, cache := newCache(t)
	app, calls := setupIdempotentApp(t, cache)

	for i := 0; i < 2; i++ {
		if status, _ := post(t, app, "/sessions/s1/commands/0", ""); status != fiber.StatusOK {
			t.Fatalf("expected %d got %d", fiber.StatusOK, status)
		}
	}
	if *calls != 2 {
		t.Fatalf("requests without a key must all reach the handler, got %d calls", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	_, cache := newCache(t)
	app, calls := setupIdempotentApp(t, cache)

	status, first := post(t, app, "/sessions/s1/commands/0", "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected status %d got %d", fiber.StatusOK, status)
	}

	// Second request should return the cached response without invoking handler again.
	status, second := post(t, app, "/sessions/s1/commands/0", "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected cached status %d got %d", fiber.StatusOK, status)
	}
	if first != second {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if *calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", *calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(second), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	_, cache := newCache(t)
	app, calls := setupIdempotentApp(t, cache)

	if status, _ := postBody(t, app, "/sessions/s1/commands/0", "k1", `{"params":[{"type":"value_input","value":500}]}`); status != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, status)
	}
	status, _ := postBody(t, app, "/sessions/s1/commands/0", "k1", `{"params":[{"type":"value_input","value":700}]}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected %d got %d", fiber.StatusUnprocessableEntity, status)
	}
	if *calls != 1 {
		t.Fatalf("mismatched body must not reach the handler, got %d calls", *calls)
	}

	// the original body still replays
	if status, _ := postBody(t, app, "/sessions/s1/commands/0", "k1", `{"params":[{"type":"value_input","value":500}]}`); status != fiber.StatusOK {
		t.Fatalf("expected replay %d got %d", fiber.StatusOK, status)
	}
	if *calls != 1 {
		t.Fatalf("expected replay without handler, got %d calls", *calls)
	}
}

func TestIdempotencyReleasesKeyWhenHandlerPanics(t *testing.T) {
	mr, cache := newCache(t)
	var calls int64
	app := fiber.New()
	app.Use(recover.New())
	app.Post(commandRoute, Idempotency(cache, time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		if atomic.AddInt64(&calls, 1) == 1 {
			panic("handler blew up")
		}
		return c.SendStatus(fiber.StatusOK)
	})

	if status, _ := post(t, app, "/sessions/s1/commands/0", "retry"); status != fiber.StatusInternalServerError {
		t.Fatalf("expected %d got %d", fiber.StatusInternalServerError, status)
	}
	if mr.Exists(idempotencyPrefix + "s1:0:retry") {
		t.Fatalf("in-progress marker left behind after panic")
	}
	if status, _ := post(t, app, "/sessions/s1/commands/0", "retry"); status != fiber.StatusOK {
		t.Fatalf("retry after panic: expected %d got %d", fiber.StatusOK, status)
	}
}

func TestIdempotencyKeysAreScopedBySession(t *testing.T) {
	_, cache := newCache(t)
	app, calls := setupIdempotentApp(t, cache)

	post(t, app, "/sessions/s1/commands/0", "same")
	post(t, app, "/sessions/s2/commands/0", "same")
	post(t, app, "/sessions/s1/commands/1", "same")

	if *calls != 3 {
		t.Fatalf("distinct sessions and commands must not share keys, got %d calls", *calls)
	}
}

func TestIdempotencyInProgressConflict(t *testing.T) {
	mr, cache := newCache(t)
	app, calls := setupIdempotentApp(t, cache)

	if err := mr.Set(idempotencyPrefix+"s1:0:busy", inProgressMarker); err != nil {
		t.Fatalf("seed marker: %v", err)
	}
	if status, _ := post(t, app, "/sessions/s1/commands/0", "busy"); status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
	if *calls != 0 {
		t.Fatalf("handler must not run while a duplicate is in progress")
	}
}

func TestIdempotencyWithoutCache(t *testing.T) {
	app, calls := setupIdempotentApp(t, nil)
	post(t, app, "/sessions/s1/commands/0", "abc")
	post(t, app, "/sessions/s1/commands/0", "abc")
	if *calls != 2 {
		t.Fatalf("expected pass-through without redis, got %d calls", *calls)
	}
}

func TestInvokeRateLimit(t *testing.T) {
	_, cache := newCache(t)
	app := fiber.New()
	app.Post(commandRoute, InvokeRateLimit(cache, 2, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		if status, _ := post(t, app, "/sessions/s1/commands/2", ""); status != fiber.StatusOK {
			t.Fatalf("call %d: expected %d got %d", i, fiber.StatusOK, status)
		}
	}
	if status, _ := post(t, app, "/sessions/s1/commands/2", ""); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, status)
	}
	if status, _ := post(t, app, "/sessions/s2/commands/2", ""); status != fiber.StatusOK {
		t.Fatalf("other sessions must keep their own budget, got %d", status)
	}
}

func TestInvokeRateLimitFailsOpen(t *testing.T) {
	cache := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	app.Post(commandRoute, InvokeRateLimit(cache, 1, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	for i := 0; i < 3; i++ {
		if status, _ := post(t, app, "/sessions/s1/commands/2", ""); status != fiber.StatusOK {
			t.Fatalf("expected fail-open %d got %d", fiber.StatusOK, status)
		}
	}
}

func TestRequestIDAndLog(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(RequestID(), RequestLog(logging.NewWithWriter(&buf, "info")))
	app.Post(commandRoute, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusBadRequest)
	})

	req := httptest.NewRequest(fiber.MethodPost, "/sessions/s1/commands/7", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Header.Get(RequestIDHeader); got != "req-1" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["level"] != "WARN" || line["request_id"] != "req-1" || line["command_id"] != "7" || line["status"] != float64(400) {
		t.Fatalf("unexpected log line %v", line)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/s1/commands/0", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}
