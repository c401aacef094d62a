package config

import (
	"context"
	"fmt"
	"time"

	"ProjectAssistant/database/postgres"
	assistantHandler "ProjectAssistant/internal/api/assistant/handler"
	assistantRepository "ProjectAssistant/internal/api/assistant/repository"
	assistantService "ProjectAssistant/internal/api/assistant/service"
	"ProjectAssistant/internal/catalog"
	"ProjectAssistant/internal/confirmation"
	"ProjectAssistant/internal/executor"
	"ProjectAssistant/internal/middleware"
	"ProjectAssistant/pkg/audio"
	"ProjectAssistant/pkg/gemini"
	"ProjectAssistant/pkg/llamacpp"
	"ProjectAssistant/pkg/nlp"
	"ProjectAssistant/pkg/openai"
	"ProjectAssistant/pkg/redis"
	"ProjectAssistant/pkg/s3"
	"ProjectAssistant/pkg/utils"
	websocketPkg "ProjectAssistant/pkg/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	cfg         AppConfig
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	s3Client    s3.ItfS3
	generator   nlp.Generator
	transcriber audio.ITranscriber
	pipeline    assistantService.ICommandPipeline
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if server.generator == nil {
		return nil, fmt.Errorf("generation engine is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithAppConfig(cfg AppConfig) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

// WithDatabase connects and applies the embedded schema.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithS3Client is a no-op when voice-note archiving is not configured.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if !s.cfg.ArchiveVoiceNotes {
			return nil
		}
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithGenerator selects the engine named by GENERATION_ENGINE. Requires
// WithAppConfig and WithLogger first.
func WithGenerator() ServerOption {
	return func(s *Server) error {
		switch s.cfg.GenerationEngine {
		case EngineOpenAI:
			s.generator = openai.NewChatGPT()
		case EngineGemini:
			client, err := gemini.NewGeminiClient()
			if err != nil {
				if s.log != nil {
					s.log.Errorf("Failed to create Gemini client: %v", err)
				}
				return fmt.Errorf("failed to create Gemini client: %w", err)
			}
			s.generator = client
		case EngineLlamaCpp, "":
			s.generator = llamacpp.New(s.log)
		default:
			return fmt.Errorf("unknown generation engine %q", s.cfg.GenerationEngine)
		}
		return nil
	}
}

// WithTranscriber enables voice notes when an OpenAI key is present.
func WithTranscriber() ServerOption {
	return func(s *Server) error {
		if s.cfg.OpenAIKey == "" {
			if s.log != nil {
				s.log.Warn("OPENAI_API_KEY not set, voice notes will fail transcription")
			}
			return nil
		}
		s.transcriber = audio.NewTranscriptionService(s.cfg.OpenAIKey, s.cfg.TranscriptionLanguage)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Memory
	assistantRepo := assistantRepository.New(s.db, s.log)
	memory := assistantService.NewMemoryService(s.log, assistantRepo)

	// Catalog
	var sources []catalog.Source
	if s.cfg.CatalogFile != "" {
		sources = append(sources, catalog.NewFileSource(s.cfg.CatalogFile))
	}
	if s.redisServer != nil {
		sources = append(sources, catalog.NewRedisSource(s.redisServer, s.cfg.CatalogKey))
	}
	catalogManager := catalog.NewManager(s.log, memory, sources...)

	// Execution
	gate := confirmation.New(confirmation.WithTTL(s.cfg.ConfirmationTTL))
	actuators := executor.Actuators{
		Reminders:  executor.NewReminderActuator(memory, uuid.NewString, time.Now),
		Navigation: executor.NavigationActuator{},
		Notes:      executor.NewNoteActuator(memory),
	}
	if s.redisServer != nil {
		actuators.Devices = executor.NewDeviceActuator(s.log, s.redisServer, catalogManager, s.cfg.DeviceChannel, uuid.NewString)
		actuators.Shortcuts = executor.NewShortcutActuator(s.log, s.redisServer, s.cfg.ShortcutChannel, uuid.NewString)
	}
	router := executor.NewRouter(s.log, gate, actuators)

	deps := assistantService.Dependencies{
		Classifier:    nlp.NewClassifier(s.log, s.generator, memory),
		Catalog:       catalogManager,
		Executor:      router,
		Confirmations: gate,
		Memory:        memory,
		IDs:           s.utils,
		NewRelay: func() websocketPkg.IRelayLink {
			return websocketPkg.NewRelayLink(s.log, s.cfg.RelayURL, s.validator,
				websocketPkg.WithHeartbeat(s.cfg.HeartbeatInterval))
		},
	}
	if s.transcriber != nil {
		deps.Transcriber = s.transcriber
	}
	if s.s3Client != nil {
		deps.Archive = s.s3Client
	}
	s.pipeline = assistantService.NewCommandPipeline(s.log, deps)

	assistantHandlers := assistantHandler.New(s.log, s.validator, s.middleware, s.pipeline)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, assistantHandlers)
}

// Run starts the pipeline and blocks serving HTTP.
func (s *Server) Run(ctx context.Context) error {
	if err := s.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	return s.engine.Listen(fmt.Sprintf(":%s", s.cfg.Port))
}

func (s *Server) Shutdown(ctx context.Context) {
	if err := s.engine.ShutdownWithContext(ctx); err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("HTTP shutdown did not complete")
	}

	if s.pipeline != nil {
		s.pipeline.Stop(ctx)
	}

	if closer, ok := s.generator.(interface{ Close() }); ok {
		closer.Close()
	}
	if s.redisServer != nil {
		_ = s.redisServer.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		state := s.pipeline.State()
		return ctx.JSON(fiber.Map{
			"message":            "Server is Healthy!",
			"pipeline":           s.pipeline.Lifecycle().String(),
			"relay_connected":    state.RelayConnected,
			"whatsapp_connected": state.WhatsappConnected,
		})
	})
}
