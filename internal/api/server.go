package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/api/handlers"
	"github.com/docqa/backend/internal/documents"
	"github.com/docqa/backend/internal/ingestion"
	"github.com/docqa/backend/internal/metrics"
	"github.com/docqa/backend/internal/middleware/ratelimit"
	"github.com/docqa/backend/internal/middleware/security"
	"github.com/docqa/backend/internal/middleware/validation"
	"github.com/docqa/backend/internal/query"
	"github.com/docqa/backend/pkg/config"
)

const Version = "1.0.0"

// Deps are the components the HTTP layer serves.
type Deps struct {
	Engine       *query.Engine
	Store        documents.Store
	History      handlers.HistoryReader
	Processor    *ingestion.Processor
	EmbedderName string
}

// Server is the HTTP API in front of the query engine and document store.
type Server struct {
	cfg     *config.Config
	app     *fiber.App
	limiter *ratelimit.RateLimiter
	logger  *zap.Logger
}

func NewServer(cfg *config.Config, deps Deps, log *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
	})

	s := &Server{cfg: cfg, app: app, logger: log}

	app.Use(recover.New())
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-API-Key",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: strings.Split(cfg.Server.AllowOrigins, ","),
		IsDevelopment:  strings.EqualFold(cfg.Logging.Format, "console"),
	}))

	if cfg.Metrics.Enabled {
		metrics.Init()
		app.Get(cfg.Metrics.Path, metrics.MetricsHandler())
	}

	s.registerRoutes(deps)

	return s
}

func (s *Server) registerRoutes(deps Deps) {
	healthHandler := handlers.NewHealthHandler(deps.Store, Version, deps.EmbedderName)
	queryHandler := handlers.NewQueryHandler(deps.Engine, deps.History)
	documentHandler := handlers.NewDocumentHandler(deps.Store, deps.Processor)
	cacheHandler := handlers.NewCacheHandler(deps.Engine)
	sentimentHandler := handlers.NewSentimentHandler()
	wsHandler := handlers.NewWebSocketHandler(deps.Engine)

	s.app.Get("/", healthHandler.Health)

	api := s.app.Group("/api/v1")

	if s.cfg.RateLimit.Enabled {
		s.limiter = ratelimit.New(ratelimit.Config{
			RequestsPerMinute: s.cfg.RateLimit.RequestsPerMinute,
			Burst:             s.cfg.RateLimit.Burst,
			Logger:            s.logger,
		})
		api.Use(s.limiter.Middleware())
	}
	api.Use(validation.Middleware(validation.Config{Logger: s.logger}))

	guard := func(c *fiber.Ctx) error { return c.Next() }
	if s.cfg.Auth.Enabled {
		guard = security.APIKeyMiddleware(security.APIKeyConfig{
			Keys:   s.cfg.Auth.APIKeys,
			Logger: s.logger,
		})
		api.Get("/auth/me", guard, handlers.WhoAmI)
	}

	api.Get("/health", healthHandler.Health)
	api.Get("/stats", healthHandler.Stats)

	api.Post("/query", queryHandler.HandleQuery)
	api.Get("/query/history", queryHandler.GetQueryHistory)
	api.Get("/search", queryHandler.Search)

	api.Get("/documents", documentHandler.ListDocuments)
	api.Get("/documents/:id", documentHandler.GetDocument)
	api.Post("/documents", guard, documentHandler.AddDocument)
	api.Post("/documents/batch", guard, documentHandler.AddDocumentsBatch)
	api.Post("/documents/html", guard, documentHandler.UploadHTML)
	api.Put("/documents/:id", guard, documentHandler.UpdateDocument)
	api.Delete("/documents/:id", guard, documentHandler.DeleteDocument)

	api.Get("/cache/stats", cacheHandler.Stats)
	api.Delete("/cache", guard, cacheHandler.Clear)

	api.Post("/sentiment", sentimentHandler.Analyze)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/query", websocket.New(wsHandler.HandleConnection))
}

// App exposes the fiber app for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("Server starting", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.app.Shutdown()
}
