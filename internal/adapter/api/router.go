package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"uigen/internal/metrics"
)

type RouterConfig struct {
	AllowedOrigins string
	Version        string
	AccessLog      bool
}

func SetupRouter(app *fiber.App, handler *GenerationHandler, cfg RouterConfig) {
	// Middleware
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	app.Use(withMetrics)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"version": cfg.Version,
			"ts":      time.Now().UTC(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Post("/generate", handler.HandleGenerate)
	api.Get("/generations", handler.HandleRecent)
	api.Get("/generations/similar", handler.HandleSimilar)
}

const unmatchedPath = "unmatched"

// withMetrics runs before the app error handler, so a returned error decides
// the status instead of the response written so far.
func withMetrics(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	// Route path keeps label cardinality bounded.
	path := c.Route().Path
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			if fe.Code == fiber.StatusNotFound {
				path = unmatchedPath
			}
		}
	}
	metrics.ObserveHTTP(c.Method(), path, strconv.Itoa(status), time.Since(start))
	return err
}
