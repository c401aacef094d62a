package bridge

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	remoteKey  = "bridge_remote"
	allowedKey = "bridge_allowed"
)

type healthResponse struct {
	Status       string `json:"status"`
	WhatsApp     string `json:"whatsapp"`
	AppConnected bool   `json:"appConnected"`
	Uptime       int64  `json:"uptime"`
}

func (h *Hub) Start(srv fiber.Router) {
	srv.Get("/health", h.Health)
	srv.Use("/ws", h.upgrade)
	srv.Get("/ws", websocket.New(func(c *websocket.Conn) {
		remote, _ := c.Locals(remoteKey).(string)
		allowed, _ := c.Locals(allowedKey).(bool)
		h.serve(c, remote, allowed)
	}))
}

// upgrade records the caller address before the handshake. Disallowed
// callers are still upgraded so they receive a 4003 close frame.
func (h *Hub) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	ip := ctx.IP()
	ctx.Locals(remoteKey, ip)
	ctx.Locals(allowedKey, h.Allowed(ip))
	return ctx.Next()
}

func (h *Hub) Health(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(healthResponse{
		Status:       "ok",
		WhatsApp:     h.messenger.State(),
		AppConnected: h.Connected(),
		Uptime:       h.Uptime(),
	})
}
