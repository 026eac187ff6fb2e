package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/query"
)

type CacheHandler struct {
	queryEngine *query.Engine
}

func NewCacheHandler(queryEngine *query.Engine) *CacheHandler {
	return &CacheHandler{queryEngine: queryEngine}
}

type cacheEntry struct {
	CacheKey         string  `json:"cache_key"`
	Question         string  `json:"question"`
	AgeSeconds       float64 `json:"age_seconds"`
	ExpiresInSeconds float64 `json:"expires_in_seconds"`
}

// Stats sweeps expired entries and reports what is left.
func (h *CacheHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.queryEngine.CacheStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	entries := make([]cacheEntry, 0, len(stats.Entries))
	for _, e := range stats.Entries {
		entries = append(entries, cacheEntry{
			CacheKey:         e.Key,
			Question:         e.Question,
			AgeSeconds:       embedding.Round(e.Age.Seconds(), 2),
			ExpiresInSeconds: embedding.Round(e.ExpiresIn.Seconds(), 2),
		})
	}

	return c.JSON(fiber.Map{
		"total_cached_queries": stats.Count,
		"cache_ttl_minutes":    stats.TTL.Minutes(),
		"cached_entries":       entries,
	})
}

func (h *CacheHandler) Clear(c *fiber.Ctx) error {
	n, err := h.queryEngine.CacheClear(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":         "Cache cleared successfully",
		"entries_removed": n,
	})
}
