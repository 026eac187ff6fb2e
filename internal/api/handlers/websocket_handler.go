package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/query"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/logger"
)

type WebSocketHandler struct {
	queryEngine *query.Engine
}

func NewWebSocketHandler(queryEngine *query.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		queryEngine: queryEngine,
	}
}

type wsMessage struct {
	Type string `json:"type"`
	queryRequest
}

// HandleConnection answers "query" messages, streaming the answer text one
// word per "chunk" frame and finishing with a "complete" frame.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg wsMessage
		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "query" {
			continue
		}

		logger.Info("Processing WebSocket query", zap.String("question", msg.Question))

		if err := h.streamResponse(c, msg.toRequest()); err != nil {
			logger.Warn("Failed to stream response", zap.Error(err))
			break
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, req query.Request) error {
	if err := h.sendChunk(c, "status", "Processing query..."); err != nil {
		return err
	}

	answer, err := h.queryEngine.AnswerQuery(context.Background(), req)
	if err != nil {
		return h.sendError(c, err)
	}

	words := strings.Fields(answer.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return h.sendComplete(c, answer)
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]any{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, answer *models.Answer) error {
	return c.WriteJSON(map[string]any{
		"type":               "complete",
		"question":           answer.Question,
		"sources":            answer.Sources,
		"timestamp":          answer.Timestamp,
		"processing_time_ms": answer.ProcessingTimeMS,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status >= 500 {
		logger.Error("WebSocket query failed", zap.Error(err))
		msg = "Internal server error"
	}
	return c.WriteJSON(map[string]any{
		"type":   "error",
		"status": status,
		"error":  msg,
	})
}
