package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ainewz/pipeline/internal/middleware"
)

// SetupRoutes wires middleware and all endpoints onto the app.
func SetupRoutes(app *fiber.App, h *Handlers) {
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	v1 := app.Group("/api/v1")

	v1.Get("/health", h.HealthCheck)

	articles := v1.Group("/articles")
	{
		articles.Get("", h.ListArticles)
		articles.Get("/:id", h.GetArticle)
	}

	v1.Get("/sources", h.ListSources)
	v1.Get("/stats", h.Stats)

	v1.Post("/fetch", h.TriggerFetch)
	v1.Post("/newsletter", h.ComposeNewsletter)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "endpoint not found")
	})
}
