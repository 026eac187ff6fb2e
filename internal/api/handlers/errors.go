package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/documents"
	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/ingestion"
	"github.com/docqa/backend/internal/query"
	"github.com/docqa/backend/internal/ranking"
	"github.com/docqa/backend/internal/sentiment"
	"github.com/docqa/backend/pkg/logger"
)

// StatusFor maps a domain error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, query.ErrInvalidRequest),
		errors.Is(err, embedding.ErrEmptyInput),
		errors.Is(err, documents.ErrInvalidDocument),
		errors.Is(err, ingestion.ErrNoContent),
		errors.Is(err, sentiment.ErrEmptyText):
		return fiber.StatusBadRequest
	case errors.Is(err, ranking.ErrEmptyCorpus),
		errors.Is(err, query.ErrNoResults),
		errors.Is(err, documents.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, documents.ErrAlreadyExists):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(status).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	msg := err.Error()
	if errors.Is(err, ranking.ErrEmptyCorpus) {
		msg = "No documents in database. Add documents first."
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func queryFloat(c *fiber.Ctx, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}
