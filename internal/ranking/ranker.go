package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/docqa/backend/internal/embedding"
)

var (
	ErrEmptyCorpus       = errors.New("no documents to rank against")
	ErrDimensionMismatch = errors.New("vector dimensions differ")
)

// Candidate is one corpus entry with its precomputed vector.
type Candidate struct {
	ID       string
	Text     string
	Metadata map[string]any
	Vector   embedding.Vector
}

type ScoredDocument struct {
	DocID           string         `json:"doc_id"`
	Text            string         `json:"text"`
	SimilarityScore float64        `json:"similarity_score"`
	Metadata        map[string]any `json:"metadata"`
}

// CosineSimilarity returns dot(a,b)/(|a||b|) rounded to 4 decimals, or 0 when
// either vector has zero magnitude.
func CosineSimilarity(a, b embedding.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	magA, magB := math.Sqrt(normA), math.Sqrt(normB)
	if magA == 0 || magB == 0 {
		return 0, nil
	}

	sim := dot / (magA * magB)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, fmt.Errorf("similarity is not finite")
	}
	return embedding.Round(sim, 4), nil
}

// Rank scores every candidate against query and returns at most topK results
// ordered by descending similarity. Ties keep corpus order.
func Rank(query embedding.Vector, corpus []Candidate, topK int) ([]ScoredDocument, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}

	scored := make([]ScoredDocument, 0, len(corpus))
	for _, c := range corpus {
		sim, err := CosineSimilarity(query, c.Vector)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s: %w", c.ID, err)
		}
		scored = append(scored, ScoredDocument{
			DocID:           c.ID,
			Text:            c.Text,
			SimilarityScore: sim,
			Metadata:        c.Metadata,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].SimilarityScore > scored[j].SimilarityScore
	})

	if topK < 0 {
		topK = 0
	}
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// FilterMinScore keeps documents scoring at least minScore, preserving order.
func FilterMinScore(docs []ScoredDocument, minScore float64) []ScoredDocument {
	out := make([]ScoredDocument, 0, len(docs))
	for _, d := range docs {
		if d.SimilarityScore >= minScore {
			out = append(out, d)
		}
	}
	return out
}
