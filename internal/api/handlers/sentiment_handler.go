package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/sentiment"
	"github.com/docqa/backend/pkg/logger"
)

const maxSentimentLength = 10000

type SentimentHandler struct{}

func NewSentimentHandler() *SentimentHandler {
	return &SentimentHandler{}
}

func (h *SentimentHandler) Analyze(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}
	if len(req.Text) > maxSentimentLength {
		return badRequest(c, "text exceeds maximum length")
	}

	res, err := sentiment.Analyze(req.Text)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(res)
}
