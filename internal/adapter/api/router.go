package api

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(app *fiber.App, handler *ChatHandler) {
	// Middleware
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"version": os.Getenv("APP_VERSION"),
			"env":     os.Getenv("ENV"),
		})
	})

	// Prometheus scrape endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API Versioning
	v1 := app.Group("/v1")
	// Endpoints
	v1.Post("/chat", handler.HandleChat)
	v1.Post("/chat/stream", handler.HandleChatStream)
	v1.Get("/models", handler.HandleModels)
	v1.Get("/tools", handler.HandleTools)
	v1.Get("/metrics", handler.HandleMetrics)
	v1.Post("/metrics/reset", handler.HandleMetricsReset)
	v1.Delete("/cache", handler.HandleCacheClear)
}
