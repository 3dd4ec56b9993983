package bootstrap

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"lead_server/adapter/in/http"
	"lead_server/config"
	"lead_server/infra/middleware"
	"lead_server/pkg/logger"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "lead-server-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json is measurably faster than encoding/json for our payloads
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 10 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	// Health and system stats (no API prefix)
	healthHandler := http.NewHealthHandler(deps.DB, deps.Redis, deps.MongoDB, deps.Latency)
	healthHandler.Register(app)

	api := app.Group("/api/v1")

	knowledgeHandler := http.NewKnowledgeHandler(deps.Indexer, deps.Retriever, deps.Latency)
	knowledgeHandler.Register(api)

	historicalHandler := http.NewHistoricalHandler(deps.CaptureService, deps.HistoricalRetriever)
	historicalHandler.Register(api)

	if deps.IntakeService != nil {
		intakeHandler := http.NewIntakeHandler(deps.IntakeService, deps.Latency)
		intakeHandler.Register(api)
	}

	logger.Info("API server initialized successfully")

	return app, cleanup, nil
}
