package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/docqa/backend/internal/documents"
)

type HealthHandler struct {
	store    documents.Reader
	version  string
	embedder string
}

func NewHealthHandler(store documents.Reader, version, embedder string) *HealthHandler {
	return &HealthHandler{store: store, version: version, embedder: embedder}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	n, err := h.store.Count(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "document store unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"status":          "healthy",
		"version":         h.version,
		"embedder":        h.embedder,
		"total_documents": n,
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

// Stats counts documents per "category" metadata value.
func (h *HealthHandler) Stats(c *fiber.Ctx) error {
	docs, err := h.store.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	categories := map[string]int{}
	for _, d := range docs {
		categories[d.Category()]++
	}

	return c.JSON(fiber.Map{
		"total_documents": len(docs),
		"categories":      categories,
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}
