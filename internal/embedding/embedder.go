package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
)

// Dimension of vectors produced by HashEmbedder.
const Dimension = 5

var ErrEmptyInput = errors.New("text has no tokens to embed")

type Vector []float64

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) (Vector, error)
}

// HashEmbedder is a deterministic stand-in for a real embedding model. Each
// position i holds the character-code sum of token i mod n, divided by 1000.
type HashEmbedder struct{}

func NewHashEmbedder() *HashEmbedder { return &HashEmbedder{} }

func (HashEmbedder) Name() string { return "hash" }

func (HashEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}

	vec := make(Vector, Dimension)
	for i := range vec {
		sum := 0
		for _, r := range tokens[i%len(tokens)] {
			sum += int(r)
		}
		vec[i] = Round(float64(sum)/1000, 4)
	}
	return vec, nil
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
