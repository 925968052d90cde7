package handlers_test

import (
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"sweetshop/internal/config"
	"sweetshop/internal/http/handlers"
	"sweetshop/internal/realtime"
	"sweetshop/internal/repos"
)

// Minimal app wired like cmd/sweetshop, on an in-memory database with the
// demo seed.
func newTestApp(t *testing.T) (*fiber.App, *sqlx.DB, *realtime.Hub) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hub := realtime.NewHub()
	cfg := config.Config{DBDSN: ":memory:"}

	app := fiber.New()
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())

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
	app.Get("/ws/:channel", deps.WSHandler.Upgrade, deps.WSHandler.Serve())

	return app, db, hub
}

// recordingSub counts deliveries on a channel.
type recordingSub struct {
	mu sync.Mutex
	n  int
}

func (s *recordingSub) Send([]byte) error {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return nil
}

func (s *recordingSub) Close() {}

func (s *recordingSub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
