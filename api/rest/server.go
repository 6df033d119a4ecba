// Package rest exposes the engine over HTTP: workflow management, run
// dispatch and history, the module catalog, and inbound webhooks.
package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"flowforge/engine/internal/queue"
	"flowforge/engine/internal/registry"
	"flowforge/engine/internal/resilience"
	"flowforge/engine/internal/scheduler"
	"flowforge/engine/internal/store"
)

// Config holds HTTP server settings.
type Config struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	EnableCORS   bool          `yaml:"enable_cors"`
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      ":8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		EnableCORS:   true,
	}
}

// Server is the REST API server.
type Server struct {
	app       *fiber.App
	config    *Config
	workflows store.WorkflowStore
	runs      store.RunStore
	queue     queue.Queue
	registry  *registry.Registry
	guards    *resilience.Manager
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

// Deps bundles the services the API surfaces.
type Deps struct {
	Workflows store.WorkflowStore
	Runs      store.RunStore
	Queue     queue.Queue
	Registry  *registry.Registry
	Guards    *resilience.Manager

	// Scheduler, when set, is re-initialised after workflow mutations so
	// cron changes take effect without a restart.
	Scheduler *scheduler.Scheduler
}

// NewServer creates the REST API server.
func NewServer(deps Deps, config *Config, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		ErrorHandler: errorHandler,
		AppName:      "FlowForge Engine API",
	})

	s := &Server{
		app:       app,
		config:    config,
		workflows: deps.Workflows,
		runs:      deps.Runs,
		queue:     deps.Queue,
		registry:  deps.Registry,
		guards:    deps.Guards,
		scheduler: deps.Scheduler,
		logger:    logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))
	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	if s.config.EnableCORS {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders: "Origin,Content-Type,Accept,Authorization",
			MaxAge:       86400,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.healthCheck)

	// Inbound webhook triggers live outside the API prefix so external
	// services get a short stable URL.
	s.app.Post("/hooks/:path", s.receiveWebhook)

	api := s.app.Group("/api/v1")

	api.Post("/workflows", s.createWorkflow)
	api.Get("/workflows", s.listWorkflows)
	api.Get("/workflows/:id", s.getWorkflow)
	api.Put("/workflows/:id", s.updateWorkflow)
	api.Delete("/workflows/:id", s.deleteWorkflow)

	api.Post("/workflows/:id/runs", s.triggerRun)
	api.Get("/workflows/:id/runs", s.listWorkflowRuns)
	api.Get("/runs/:id", s.getRun)

	api.Get("/modules", s.listModules)
	api.Get("/modules/search", s.searchModules)

	api.Get("/resilience", s.resilienceStates)
}

// Listen starts serving on the configured address, blocking until shutdown.
func (s *Server) Listen() error {
	s.logger.Info("http server listening", zap.String("address", s.config.Address))
	return s.app.Listen(s.config.Address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler renders handler errors as the API's error envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(ErrorResponse{
		Error:   fiberStatusName(code),
		Message: message,
	})
}

func fiberStatusName(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	default:
		return "internal_error"
	}
}
