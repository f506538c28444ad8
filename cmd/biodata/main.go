package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sridharan011/matrimony-pdf-generator/internal/compose"
	"github.com/sridharan011/matrimony-pdf-generator/internal/config"
	"github.com/sridharan011/matrimony-pdf-generator/internal/http/server"
	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/logging"
	"github.com/sridharan011/matrimony-pdf-generator/internal/infra/ratelimit"
	"github.com/sridharan011/matrimony-pdf-generator/internal/tokens"
)

func main() {
	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	logging.SetLogLevel(cfg.Logger.Level)

	composer, err := compose.New(cfg)
	if err != nil {
		logging.Error("Invalid compose configuration", "error", err)
		os.Exit(1)
	}
	// A missing template only fails requests; warn early so the operator sees it.
	if !compose.TemplateReady(composer.TemplatePath()) {
		logging.Warn("Template not loadable, requests will fail until it is fixed", "path", composer.TemplatePath())
	}

	keys := tokens.FromMap(cfg.Auth.APIKeys)
	ctx, stopReload := context.WithCancel(context.Background())
	defer stopReload()
	if path := config.Path(); path != "" {
		tokens.NewReloader(config.APIKeySource{Path: path}, keys, cfg.Auth.ReloadInterval).Start(ctx)
	}

	app := server.New(server.Deps{
		Config:   cfg,
		Composer: composer,
		Tokens:   keys,
		Store: ratelimit.NewStore(ratelimit.RedisConfig{
			Addr: cfg.RateStore.RedisAddr,
			DB:   cfg.RateStore.RedisDB,
		}),
		Ready: func() bool { return compose.TemplateReady(composer.TemplatePath()) },
	})

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		logging.Info("Biodata intake listening", "addr", cfg.Server.Host+cfg.Server.Port)
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
