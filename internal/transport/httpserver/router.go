// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"booth-outfit-search/internal/app/service"
	"booth-outfit-search/internal/transport/httpserver/dto"
	"booth-outfit-search/internal/transport/httpserver/handler"
	"booth-outfit-search/internal/transport/httpserver/middleware"
	"booth-outfit-search/internal/validator"
	"booth-outfit-search/web"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port      int
	BodyLimit int
	Debug     bool
	Defaults  dto.Defaults
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// prefetchSvc may be nil.
func NewServer(
	cfg ServerConfig,
	searchSvc *service.SearchService,
	prefetchSvc *service.PrefetchService,
	favoriteSvc *service.FavoriteService,
	v *validator.Validator,
	logger *zap.Logger,
) *Server {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")
	if cfg.Debug {
		engine.Reload(true)
	}

	app := fiber.New(fiber.Config{
		AppName:               "booth-outfit-search",
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          errorHandler(logger),
		Views:                 engine,
		DisableStartupMessage: !cfg.Debug,
	})

	// Health check middleware MUST be registered BEFORE other middleware
	// so Kubernetes health checks answer even during high load
	app.Use(middleware.NewHealthCheck(searchSvc))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger))
	app.Use(middleware.CORS())
	app.Use(compress.New())

	app.Use("/static", filesystem.New(filesystem.Config{
		Root: http.FS(web.Static()),
	}))

	searchHandler := handler.NewSearchHandler(searchSvc, v, cfg.Defaults, logger)
	adminHandler := handler.NewAdminHandler(searchSvc, prefetchSvc, v, logger)
	pageHandler := handler.NewPageHandler(searchSvc, v, cfg.Defaults, logger)
	favoriteHandler := handler.NewFavoriteHandler(favoriteSvc, v, logger)

	registerRoutes(app, searchHandler, adminHandler, pageHandler, favoriteHandler)

	return &Server{
		App:    app,
		Logger: logger,
	}
}

// registerRoutes sets up all API routes.
func registerRoutes(
	app *fiber.App,
	searchHandler *handler.SearchHandler,
	adminHandler *handler.AdminHandler,
	pageHandler *handler.PageHandler,
	favoriteHandler *handler.FavoriteHandler,
) {
	// Health checks are handled by middleware (/livez, /readyz)

	app.Get("/", pageHandler.Render)

	v1 := app.Group("/api/v1")

	v1.Get("/search", searchHandler.Search)
	v1.Get("/search/all", searchHandler.SearchAll)
	v1.Get("/search/export", searchHandler.Export)
	v1.Post("/clicks", searchHandler.RecordClick)
	v1.Get("/avatars", searchHandler.Avatars)
	v1.Get("/categories", searchHandler.Categories)

	cache := v1.Group("/cache")
	cache.Delete("/", adminHandler.ClearCache)
	cache.Post("/invalidate", adminHandler.Invalidate)
	cache.Post("/cleanup", adminHandler.Cleanup)

	favorites := v1.Group("/favorites")
	favorites.Get("/", favoriteHandler.List)
	favorites.Get("/export", favoriteHandler.Export)
	favorites.Get("/:id", favoriteHandler.Get)
	favorites.Post("/", favoriteHandler.Add)
	favorites.Delete("/", favoriteHandler.Clear)
	favorites.Delete("/:id", favoriteHandler.Remove)
	favorites.Patch("/:id/memo", favoriteHandler.UpdateMemo)

	v1.Get("/stats", adminHandler.Stats)

	admin := v1.Group("/admin")
	admin.Post("/prefetch", adminHandler.Prefetch)
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level (expected client behavior), 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errCode := "UNHANDLED_ERROR"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		switch {
		case code == fiber.StatusNotFound:
			errCode = "NOT_FOUND"
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		case code >= 400:
			errCode = "CLIENT_ERROR"
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Error("unhandled error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		return c.Status(code).JSON(dto.ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.Shutdown()
}
