package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	applog "sweetshop/internal/log"
	"sweetshop/internal/realtime"
	"sweetshop/internal/validate"
)

// WSHandler upgrades /ws/:channel connections and ties their lifetime to hub
// membership: subscribed on connect, unsubscribed on disconnect.
type WSHandler struct {
	Hub        *realtime.Hub
	SendBuffer int
}

// Upgrade gates the route: only websocket upgrade requests with a valid
// channel name proceed. The validated name is stashed in Locals so Serve
// joins the same channel publishers use, not a whitespace-variant of it.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	channel, ok := validate.Channel(c.Params("channel"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid channel name"})
	}
	c.Locals("channel", channel)
	return c.Next()
}

// Serve runs the connection: subscribe, block in the read loop until the
// peer goes away, then unsubscribe.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		channel, _ := conn.Locals("channel").(string)
		sub := realtime.NewWSSubscriber(conn, h.SendBuffer)
		h.Hub.Subscribe(channel, sub)
		applog.Info(nil, "ws.connect", map[string]any{"channel": channel})

		sub.ReadLoop()

		h.Hub.Unsubscribe(channel, sub)
		sub.Close()
		applog.Info(nil, "ws.disconnect", map[string]any{"channel": channel})
	})
}
