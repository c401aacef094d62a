package assistantHandler

import (
	assistantService "ProjectAssistant/internal/api/assistant/service"
	"ProjectAssistant/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type AssistantHandler struct {
	log        *logrus.Logger
	validator  *validator.Validate
	middleware middleware.Middleware
	pipeline   assistantService.ICommandPipeline
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	pipeline assistantService.ICommandPipeline,
) *AssistantHandler {
	return &AssistantHandler{
		log:        log,
		validator:  validate,
		middleware: middleware,
		pipeline:   pipeline,
	}
}

func (h *AssistantHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	assistant := srv.Group("/assistant")
	assistant.Use(h.middleware.NewRateLimiter)
	assistant.Use(h.middleware.NewTokenMiddleware)

	assistant.Post("/commands", h.SubmitCommand)
	assistant.Get("/history", h.GetHistory)
	assistant.Get("/confirmation", h.GetPendingConfirmation)

	assistant.Get("/state", h.GetState)
	assistant.Use("/state/ws", wsMiddleware)
	assistant.Get("/state/ws", websocket.New(h.streamState))

	assistant.Post("/shortcuts", h.RegisterShortcut)
	assistant.Post("/catalog/refresh", h.RefreshCatalog)
}
