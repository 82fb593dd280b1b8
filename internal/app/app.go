package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"storekode/internal/config"
	"storekode/internal/database"
	"storekode/internal/handlers"
	"storekode/internal/metrics"
	"storekode/internal/middleware"
	"storekode/internal/repositories"
	"storekode/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

// Deps are the collaborators New wires together. Publisher and AccessLog may be nil.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Publisher services.EventPublisher
	Logger    *slog.Logger
	AccessLog io.Writer
}

// New builds the Fiber application with every route mounted under /v1.
func New(deps Deps) *fiber.App {
	cfg, logger := deps.Config, deps.Logger

	// --- Repositories, services, handlers ---
	userRepo := repositories.NewGORMUserRepository(deps.DB)
	storeRepo := repositories.NewGORMStoreRepository(deps.DB)

	tokens := services.NewTokenService(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, tokens, cfg.BcryptCost, deps.Publisher, logger)
	storeService := services.NewStoreService(storeRepo, deps.Publisher, logger)

	m := metrics.New()
	authHandler := handlers.NewAuthHandler(authService, m, logger)
	storeHandler := handlers.NewStoreHandler(storeService, m, logger)

	// --- Fiber app and middleware ---
	app := fiber.New(fiber.Config{
		AppName:      "storekode",
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if deps.AccessLog != nil {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${method} ${path} | ${respHeader:X-Request-ID}\n",
			Output: deps.AccessLog,
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	if cfg.MetricsEnabled {
		app.Use(middleware.Metrics(m))
		app.Get("/metrics", m.Handler())
	}

	app.Get("/health", healthHandler(deps.DB))

	// --- API routes ---
	apiV1 := app.Group("/v1")
	authHandler.RegisterRoutes(apiV1)
	storeHandler.RegisterRoutes(apiV1, middleware.AuthRequired(authService, m, logger))

	return app
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		if err := database.Ping(ctx, db); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "unhealthy",
				"timestamp": time.Now().Format(time.RFC3339),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// errorHandler renders errors that escape handlers (unknown routes, panics) in the
// same envelope the handlers use.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, msg = fe.Code, fe.Message
		} else {
			logger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"message": msg})
	}
}
