// Package middleware wires the global Fiber middleware chain.
package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/rs/xid"

	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/logging"
	"github.com/sridharan011/matrimony-pdf-generator/internal/tokens"
)

// Deps are the collaborators used by the middleware chain. Nil fields get
// safe defaults.
type Deps struct {
	Tokens *tokens.Cache
	Store  fiber.Storage
	// Ready backs the readiness probe.
	Ready func() bool
}

// Register attaches global middleware to the app.
func Register(app *fiber.App, cfg config.Config, deps Deps) {
	if deps.Tokens == nil {
		deps.Tokens = tokens.FromMap(cfg.Auth.APIKeys)
	}
	if deps.Store == nil {
		deps.Store = memoryStorage.New()
	}
	ready := deps.Ready
	if ready == nil {
		ready = func() bool { return true }
	}

	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  "/ops/live",
		ReadinessEndpoint: "/ops/ready",
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return ready()
		},
	}))

	app.Use(keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: "api_key",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if err := deps.Tokens.Validate(key); err != nil {
				return false, err
			}
			return true, nil
		},
		// Anonymous requests continue to the user limiter.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, tokens.ErrStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    status,
					"message": err.Error(),
				},
			})
		},
	}))

	rl := RateLimitConfig{
		RateInterval:      cfg.RateLimiter.Interval,
		EnableUserLimiter: cfg.RateLimiter.EnableUserLimiter,
		UserLimit:         cfg.RateLimiter.UserLimit,
	}
	app.Use(TokenRateLimit(rl, deps.Tokens, deps.Store, NewLimiterCache()))
	app.Use(UserRateLimit(rl, deps.Store))

	app.Use(func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = c.GetRespHeader("X-Request-ID")
		}
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)
		return c.Next()
	})
}
