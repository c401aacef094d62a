package assistantHandler

import (
	"context"
	"time"

	"ProjectAssistant/internal/api/assistant"
	"ProjectAssistant/internal/entity"
	"ProjectAssistant/internal/reply"
	contextPkg "ProjectAssistant/pkg/context"
	"ProjectAssistant/pkg/handlerUtil"
	"ProjectAssistant/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	commandTimeout = 90 * time.Second
	requestTimeout = 15 * time.Second
)

func (h *AssistantHandler) SubmitCommand(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), commandTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req assistant.SubmitCommandRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, assistant.ErrInvalidRequest, ctx.Path(), "submit_command")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"length":     len(req.Text),
	}).Debug("Submitting in-app command")

	cmd, result, err := h.pipeline.Submit(c, req.Text)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "submit_command")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, assistant.CommandResultResponse{
		CommandID: cmd.ID,
		Kind:      result.Kind.String(),
		Reply:     reply.Format(result),
		Options:   result.Options,
	})
}

func (h *AssistantHandler) GetState(ctx *fiber.Ctx) error {
	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, h.stateResponse(h.pipeline.State()))
}

func (h *AssistantHandler) GetHistory(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var query assistant.HistoryQuery
	if err := ctx.QueryParser(&query); err != nil {
		return errHandler.Handle(ctx, requestID, assistant.ErrInvalidRequest, ctx.Path(), "get_history")
	}

	if err := h.validator.Struct(query); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	logs, err := h.pipeline.History(c, query.Limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_history")
	}
	if logs == nil {
		logs = []entity.CommandLog{}
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, logs)
}

func (h *AssistantHandler) GetPendingConfirmation(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	pending, ok := h.pipeline.PendingConfirmation()
	if !ok {
		return errHandler.Handle(ctx, requestID, assistant.ErrNoPendingConfirmation, ctx.Path(), "get_confirmation")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, assistant.PendingConfirmationResponse{
		ID:        pending.ID,
		Action:    pending.Intent.Action.String(),
		Target:    pending.Intent.Target,
		Prompt:    pending.Prompt,
		CreatedAt: pending.CreatedAt,
		ExpiresAt: pending.ExpiresAt,
	})
}

func (h *AssistantHandler) RegisterShortcut(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req assistant.RegisterShortcutRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, assistant.ErrInvalidRequest, ctx.Path(), "register_shortcut")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	shortcut, err := h.pipeline.RegisterShortcut(c, req.Name, req.Description)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "register_shortcut")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"shortcut":   shortcut.Name,
	}).Info("Shortcut registered")

	return errHandler.HandleSuccess(ctx, fiber.StatusCreated, shortcut)
}

func (h *AssistantHandler) RefreshCatalog(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	snapshot, err := h.pipeline.RefreshCatalog(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "refresh_catalog")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, assistant.CatalogResponse{
		Devices:   len(snapshot.Devices),
		Scenes:    len(snapshot.Scenes),
		Shortcuts: len(snapshot.Shortcuts),
	})
}

// streamState sends the current snapshot, then every change until the peer
// goes away.
func (h *AssistantHandler) streamState(c *websocket.Conn) {
	updates, unsubscribe := h.pipeline.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := c.WriteJSON(h.stateResponse(h.pipeline.State())); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := c.WriteJSON(h.stateResponse(state)); err != nil {
				h.log.WithFields(log.Fields{
					"error": err.Error(),
				}).Debug("State stream closed")
				return
			}
		}
	}
}

func (h *AssistantHandler) stateResponse(state entity.PipelineState) assistant.PipelineStateResponse {
	resp := assistant.PipelineStateResponse{
		Lifecycle:         h.pipeline.Lifecycle().String(),
		IsProcessing:      state.IsProcessing,
		RelayConnected:    state.RelayConnected,
		WhatsappConnected: state.WhatsappConnected,
	}
	if state.LastCommand != "" {
		resp.LastCommand = &state.LastCommand
	}
	if state.LastResult != "" {
		resp.LastResult = &state.LastResult
	}
	return resp
}
