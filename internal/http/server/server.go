// Package server assembles the Fiber app for the biodata intake.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
	"github.com/sridharan011/matrimony-pdf-generator/internal/http/handlers"
	"github.com/sridharan011/matrimony-pdf-generator/internal/http/middleware"
	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/logging"
	"github.com/sridharan011/matrimony-pdf-generator/internal/tokens"
)

// Deps carries everything New needs. Tokens, Store and Ready may be nil.
type Deps struct {
	Config   config.Config
	Composer handlers.Composer
	Tokens   *tokens.Cache
	Store    fiber.Storage
	Ready    func() bool
}

// New creates and configures a new Fiber app instance
func New(d Deps) *fiber.App {
	cfg := d.Config
	bodyLimit := cfg.Limits.MaxBodyBytes
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	middleware.Register(app, cfg, middleware.Deps{
		Tokens: d.Tokens,
		Store:  d.Store,
		Ready:  d.Ready,
	})
	registerRoutes(app, cfg, d.Composer)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func registerRoutes(app *fiber.App, cfg config.Config, composer handlers.Composer) {
	v1 := app.Group("/v1")

	svc := handlers.NewBiodataService(cfg, composer)
	v1.Post("/biodata", svc.HandleCompose)

	v1.Get("/monitor", monitor.New())
}
