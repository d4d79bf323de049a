package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/muzzle/internal/api/middleware"
)

const defaultBodyLimit = 32 * 1024 * 1024

// Analyzer is the face pipeline served by the router
type Analyzer interface {
	handler.Analyzer
	handler.ReadinessChecker
}

type Dependencies struct {
	Analyzer  Analyzer
	Decoder   handler.Decoder
	BodyLimit int
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	bodyLimit := defaultBodyLimit
	if deps != nil && deps.BodyLimit > 0 {
		bodyLimit = deps.BodyLimit
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Muzzle API",
		BodyLimit:    bodyLimit,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: middleware.LocalRequestID,
	}))
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var checker handler.ReadinessChecker
	if r.deps != nil && r.deps.Analyzer != nil {
		checker = r.deps.Analyzer
	}
	healthHandler := handler.NewHealthHandler(checker)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Inference routes need a prepared pipeline
	if r.deps != nil && r.deps.Analyzer != nil {
		analysisHandler := handler.NewAnalysisHandler(r.deps.Analyzer, r.deps.Decoder, r.logger)

		r.app.Post("/detection", analysisHandler.Detect)
		r.app.Post("/recognition", analysisHandler.Recognize)
		r.app.Post("/visualize", analysisHandler.Visualize)
		r.app.Get("/models", analysisHandler.Models)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
