package handlers

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/documents"
	"github.com/docqa/backend/internal/ingestion"
	"github.com/docqa/backend/internal/metrics"
	"github.com/docqa/backend/pkg/logger"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
	previewLength    = 100
)

type DocumentHandler struct {
	store     documents.Store
	processor *ingestion.Processor
}

func NewDocumentHandler(store documents.Store, processor *ingestion.Processor) *DocumentHandler {
	return &DocumentHandler{
		store:     store,
		processor: processor,
	}
}

func (h *DocumentHandler) AddDocument(c *fiber.Ctx) error {
	var doc documents.Document
	if err := c.BodyParser(&doc); err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}

	if err := h.store.Add(c.UserContext(), doc); err != nil {
		return respondError(c, err)
	}
	h.refreshCount(c.UserContext())

	logger.Info("Document added", zap.String("doc_id", doc.ID))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Document added successfully",
		"doc_id":      doc.ID,
		"text_length": utf8.RuneCountInString(doc.Text),
	})
}

type batchFailure struct {
	DocID string `json:"doc_id"`
	Error string `json:"error"`
}

type batchSuccess struct {
	DocID      string `json:"doc_id"`
	TextLength int    `json:"text_length"`
}

func (h *DocumentHandler) AddDocumentsBatch(c *fiber.Ctx) error {
	var docs []documents.Document
	if err := c.BodyParser(&docs); err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}
	if len(docs) == 0 {
		return badRequest(c, "At least one document is required")
	}

	successful := []batchSuccess{}
	failed := []batchFailure{}
	for _, doc := range docs {
		if err := h.store.Add(c.UserContext(), doc); err != nil {
			failed = append(failed, batchFailure{DocID: doc.ID, Error: err.Error()})
			continue
		}
		successful = append(successful, batchSuccess{DocID: doc.ID, TextLength: utf8.RuneCountInString(doc.Text)})
	}
	h.refreshCount(c.UserContext())

	logger.Info("Batch upload completed",
		zap.Int("successful", len(successful)),
		zap.Int("failed", len(failed)),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":          fmt.Sprintf("Batch upload completed: %d successful, %d failed", len(successful), len(failed)),
		"successful_count": len(successful),
		"failed_count":     len(failed),
		"results": fiber.Map{
			"successful":      successful,
			"failed":          failed,
			"total_processed": len(docs),
		},
	})
}

type documentSummary struct {
	DocID       string         `json:"doc_id"`
	TextPreview string         `json:"text_preview"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	skip, err := queryInt(c, "skip", 0)
	if err != nil || skip < 0 {
		return badRequest(c, "skip must be >= 0")
	}
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		return badRequest(c, "limit must be between 1 and 100")
	}
	category := c.Query("category")

	all, err := h.store.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	filtered := all
	if category != "" {
		filtered = filtered[:0:0]
		for _, doc := range all {
			if cat, _ := doc.Metadata["category"].(string); cat == category {
				filtered = append(filtered, doc)
			}
		}
	}

	start := min(skip, len(filtered))
	end := min(start+limit, len(filtered))
	page := make([]documentSummary, 0, end-start)
	for _, doc := range filtered[start:end] {
		page = append(page, documentSummary{
			DocID:       doc.ID,
			TextPreview: preview(doc.Text),
			Metadata:    doc.Metadata,
		})
	}

	return c.JSON(fiber.Map{
		"total":     len(filtered),
		"skip":      skip,
		"limit":     limit,
		"count":     len(page),
		"documents": page,
	})
}

func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	doc, err := h.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(doc)
}

func (h *DocumentHandler) UpdateDocument(c *fiber.Ctx) error {
	id := c.Params("id")

	var doc documents.Document
	if err := c.BodyParser(&doc); err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}

	if _, err := h.store.Get(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID != id {
		return badRequest(c, fmt.Sprintf("Document ID in body (%s) must match URL parameter (%s)", doc.ID, id))
	}

	old, err := h.store.Update(c.UserContext(), doc)
	if err != nil {
		return respondError(c, err)
	}

	logger.Info("Document updated", zap.String("doc_id", id))

	return c.JSON(fiber.Map{
		"message":          "Document updated successfully",
		"doc_id":           id,
		"old_text_length":  utf8.RuneCountInString(old.Text),
		"new_text_length":  utf8.RuneCountInString(doc.Text),
		"metadata_updated": !sameMetadata(old.Metadata, doc.Metadata),
	})
}

func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	h.refreshCount(c.UserContext())

	logger.Info("Document deleted", zap.String("doc_id", id))

	return c.JSON(fiber.Map{
		"message": "Document deleted successfully",
		"doc_id":  id,
	})
}

type htmlUploadRequest struct {
	DocID    string         `json:"doc_id"`
	URL      string         `json:"url"`
	HTML     string         `json:"html"`
	Category string         `json:"category"`
	Metadata map[string]any `json:"metadata"`
}

func (h *DocumentHandler) UploadHTML(c *fiber.Ctx) error {
	var req htmlUploadRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.HTML) == "" {
		return badRequest(c, "html is required")
	}

	docs, err := h.processor.ProcessHTML(c.UserContext(), ingestion.HTMLRequest{
		DocID:     req.DocID,
		SourceURL: req.URL,
		HTML:      req.HTML,
		Category:  req.Category,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return respondError(c, err)
	}
	h.refreshCount(c.UserContext())

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "HTML document processed successfully",
		"doc_ids": ids,
		"chunks":  len(docs),
		"title":   docs[0].Metadata["title"],
	})
}

func (h *DocumentHandler) refreshCount(ctx context.Context) {
	n, err := h.store.Count(ctx)
	if err != nil {
		logger.Warn("Failed to count documents", zap.Error(err))
		return
	}
	metrics.DocumentsTotal.Set(float64(n))
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "..."
}

func sameMetadata(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
