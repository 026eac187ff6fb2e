package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/docqa/backend/internal/ranking"
)

// ContextLimit is the number of characters of joined context quoted in a
// templated answer.
const ContextLimit = 200

type Synthesizer interface {
	Synthesize(ctx context.Context, question string, docs []ranking.ScoredDocument) (string, error)
}

// TemplateSynthesizer builds an answer from a fixed narrative template. An
// empty context list is allowed and reports zero sources.
type TemplateSynthesizer struct{}

func NewTemplateSynthesizer() *TemplateSynthesizer { return &TemplateSynthesizer{} }

func (TemplateSynthesizer) Synthesize(_ context.Context, question string, docs []ranking.ScoredDocument) (string, error) {
	return fmt.Sprintf(
		"Based on the available information: %s... This relates to your question about '%s'. The most relevant information comes from %d source(s).",
		truncate(JoinContext(docs), ContextLimit), question, len(docs),
	), nil
}

// JoinContext space-joins document texts in the given order.
func JoinContext(docs []ranking.ScoredDocument) string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return strings.Join(texts, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
