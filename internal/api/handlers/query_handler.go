package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/query"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type HistoryReader interface {
	GetQueryHistory(ctx context.Context, limit int) ([]models.QueryRecord, error)
}

type QueryHandler struct {
	queryEngine *query.Engine
	history     HistoryReader
}

// NewQueryHandler builds the query endpoints. history may be nil when the
// store does not keep query history.
func NewQueryHandler(queryEngine *query.Engine, history HistoryReader) *QueryHandler {
	return &QueryHandler{
		queryEngine: queryEngine,
		history:     history,
	}
}

type queryRequest struct {
	Question       string `json:"question"`
	TopK           *int   `json:"top_k"`
	IncludeSources *bool  `json:"include_sources"`
}

func (r queryRequest) toRequest() query.Request {
	req := query.Request{
		Question:       r.Question,
		TopK:           query.DefaultTopK,
		IncludeSources: true,
	}
	if r.TopK != nil {
		req.TopK = *r.TopK
	}
	if r.IncludeSources != nil {
		req.IncludeSources = *r.IncludeSources
	}
	return req
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}

	answer, err := h.queryEngine.AnswerQuery(c.UserContext(), req.toRequest())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(answer)
}

func (h *QueryHandler) Search(c *fiber.Ctx) error {
	q := c.Query("q")

	limit, err := queryInt(c, "limit", query.DefaultSearchLimit)
	if err != nil {
		return badRequest(c, "limit must be an integer")
	}
	minScore, err := queryFloat(c, "min_score", 0)
	if err != nil {
		return badRequest(c, "min_score must be a number")
	}

	results, err := h.queryEngine.Search(c.UserContext(), q, limit, minScore)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"query":         q,
		"min_score":     minScore,
		"total_results": len(results),
		"results":       results,
	})
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	if h.history == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Query history requires the sqlite store backend",
		})
	}

	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil || limit < 1 || limit > maxHistoryLimit {
		return badRequest(c, "limit must be between 1 and 100")
	}

	records, err := h.history.GetQueryHistory(c.UserContext(), limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"count":   len(records),
		"history": records,
	})
}
