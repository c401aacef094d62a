package nlp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ProjectAssistant/internal/entity"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.1
)

var ErrEngineNotLoaded = errors.New("generation engine not loaded")

type GenerateRequest struct {
	// System and User are the two turns for chat-style engines. Prompt is
	// the same content rendered as a single ChatML string.
	System      string
	User        string
	Prompt      string
	Grammar     Grammar
	MaxTokens   int
	Temperature float32
}

// Generator is a text generation engine constrained by a grammar or schema.
type Generator interface {
	Name() string
	Load(ctx context.Context) error
	Unload(ctx context.Context) error
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ContextProvider returns recent interaction summaries, oldest first.
type ContextProvider interface {
	QueryContext(ctx context.Context, limit int) ([]string, error)
}

type IIntentClassifier interface {
	WarmUp(ctx context.Context) error
	CoolDown(ctx context.Context)
	IsWarm() bool
	Route(ctx context.Context, cmd entity.Command, catalog entity.Catalog) (entity.Intent, error)
}

type classifier struct {
	mu       sync.Mutex
	log      *logrus.Logger
	engine   Generator
	contexts ContextProvider
	warm     bool
}

func NewClassifier(log *logrus.Logger, engine Generator, contexts ContextProvider) IIntentClassifier {
	return &classifier{
		log:      log,
		engine:   engine,
		contexts: contexts,
	}
}

func (c *classifier) WarmUp(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warmUpLocked(ctx)
}

func (c *classifier) warmUpLocked(ctx context.Context) error {
	if c.warm {
		return nil
	}

	start := time.Now()
	if err := c.engine.Load(ctx); err != nil {
		return fmt.Errorf("load %s engine: %w", c.engine.Name(), err)
	}
	c.warm = true

	c.log.WithFields(logrus.Fields{
		"engine":      c.engine.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Intent classifier warmed up")
	return nil
}

func (c *classifier) CoolDown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.warm {
		return
	}
	if err := c.engine.Unload(ctx); err != nil {
		c.log.WithFields(logrus.Fields{
			"engine": c.engine.Name(),
			"error":  err.Error(),
		}).Warn("Failed to unload generation engine")
	}
	c.warm = false
}

func (c *classifier) IsWarm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warm
}

func (c *classifier) Route(ctx context.Context, cmd entity.Command, catalog entity.Catalog) (entity.Intent, error) {
	if intent, ok := QuickConfirmation(cmd.RawText); ok {
		return intent, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.warmUpLocked(ctx); err != nil {
		return entity.Intent{}, err
	}

	builder := NewPromptBuilder(catalog, c.recentContext(ctx, cmd.ID))
	req := GenerateRequest{
		System:      builder.System(),
		User:        builder.User(cmd.RawText),
		Prompt:      builder.ChatML(cmd.RawText),
		Grammar:     IntentGrammar(),
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}

	start := time.Now()
	output, err := c.engine.Generate(ctx, req)
	if err != nil {
		return entity.Intent{}, fmt.Errorf("generate intent: %w", err)
	}

	intent, err := ParseIntent(output)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"command_id": cmd.ID,
			"output":     preview(output),
		}).Warn("Unparseable generator output")
		return entity.Intent{}, err
	}

	c.log.WithFields(logrus.Fields{
		"command_id":  cmd.ID,
		"action":      intent.Action.String(),
		"target":      intent.TargetOr(""),
		"confidence":  intent.Confidence,
		"needs_ok":    intent.RequiresConfirmation,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Command classified")

	return intent, nil
}

func (c *classifier) recentContext(ctx context.Context, commandID string) []string {
	if c.contexts == nil {
		return nil
	}
	entries, err := c.contexts.QueryContext(ctx, MaxContextEntries)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"command_id": commandID,
			"error":      err.Error(),
		}).Warn("Recent context unavailable, classifying without it")
		return nil
	}
	return entries
}
