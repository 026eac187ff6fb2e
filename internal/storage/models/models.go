package models

import (
	"time"

	"github.com/docqa/backend/internal/ranking"
)

// Answer is the result of one question-answering pass. Cached copies keep the
// original ProcessingTimeMS; Timestamp is set when the answer is served.
type Answer struct {
	Question         string                   `json:"question"`
	Answer           string                   `json:"answer"`
	Sources          []ranking.ScoredDocument `json:"sources"`
	Timestamp        time.Time                `json:"timestamp"`
	ProcessingTimeMS float64                  `json:"processing_time_ms"`
}

func (a Answer) Clone() Answer {
	out := a
	if a.Sources != nil {
		out.Sources = make([]ranking.ScoredDocument, len(a.Sources))
		copy(out.Sources, a.Sources)
	}
	return out
}

type QueryRecord struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	TopK             int       `json:"top_k"`
	CacheHit         bool      `json:"cache_hit"`
	SourceCount      int       `json:"source_count"`
	ProcessingTimeMS float64   `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}
