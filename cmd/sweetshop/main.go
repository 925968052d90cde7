package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"sweetshop/internal/config"
	"sweetshop/internal/http/handlers"
	applog "sweetshop/internal/log"
	"sweetshop/internal/realtime"
	"sweetshop/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	hub := realtime.NewHub()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Log and keep internals out of the response
			applog.Error(c, "server.error", err, nil)
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": "something went wrong, please try again"})
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			// Long-lived websocket connects don't count against the limit
			return strings.HasPrefix(c.Path(), "/ws/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Warn(c, "rate.limit.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))

	// ---------- Routes ----------
	deps := handlers.NewDeps(db, hub, cfg)

	api := app.Group("/api/v1")
	api.Get("/items", deps.ItemHandler.List)
	api.Get("/items/:id", deps.ItemHandler.Get)
	api.Post("/items", deps.ItemHandler.Create)
	api.Put("/items/:id", deps.ItemHandler.Update)
	api.Delete("/items/:id", deps.ItemHandler.Delete)

	api.Post("/orders", deps.OrderHandler.Place)
	api.Get("/orders", deps.OrderHandler.ListAll)
	api.Get("/orders/my-history", deps.OrderHandler.History)
	api.Get("/orders/:id", deps.OrderHandler.Get)

	// Realtime channels: /ws/stock for shoppers, /ws/admin for admins,
	// arbitrary validated names allowed.
	app.Get("/ws/:channel", deps.WSHandler.Upgrade, deps.WSHandler.Serve())

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	// Close subscriber connections on shutdown
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		hub.Shutdown()
		_ = app.Shutdown()
	}()

	log.Fatal(app.Listen(":" + cfg.Port))
}
