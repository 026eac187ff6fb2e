// Package sentiment scores free text with a lexicon of positive and negative
// words.
package sentiment

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

const (
	NeutralScore      = 0.5
	positiveThreshold = 0.60
	negativeThreshold = 0.40
)

var ErrEmptyText = errors.New("text is empty")

var positiveWords = wordSet(
	"good", "great", "excellent", "amazing", "wonderful", "fantastic",
	"love", "like", "happy", "joy", "perfect", "best", "awesome",
	"beautiful", "brilliant", "superb", "outstanding", "magnificent",
	"delightful", "pleasant", "enjoy", "positive", "success", "win",
	"hope", "improve", "better", "nice", "kind", "friendly",
)

var negativeWords = wordSet(
	"bad", "terrible", "awful", "horrible", "poor", "worst", "hate",
	"dislike", "sad", "unhappy", "angry", "disappointing", "failure",
	"fail", "lose", "problem", "issue", "wrong", "negative", "difficult",
	"hard", "pain", "hurt", "ugly", "boring", "annoying", "frustrating",
	"disgusting", "nasty", "unpleasant",
)

var suffixes = []string{"ing", "ed", "s", "es", "ly", "ness", "ful", "less"}

type Result struct {
	PositiveCount int      `json:"positive_count"`
	NegativeCount int      `json:"negative_count"`
	Score         float64  `json:"sentiment_score"`
	Label         string   `json:"sentiment_label"`
	PositiveFound []string `json:"positive_words_found"`
	NegativeFound []string `json:"negative_words_found"`
}

// Analyze counts lexicon hits in text. Score is positive/(positive+negative)
// rounded to two places, or 0.5 when no lexicon word occurs.
func Analyze(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return Result{}, fmt.Errorf("failed to tokenize text: %w", err)
	}

	res := Result{PositiveFound: []string{}, NegativeFound: []string{}}
	for _, tok := range doc.Tokens() {
		if !hasLetter(tok.Text) {
			continue
		}
		base := Normalize(tok.Text)
		switch {
		case positiveWords[base]:
			res.PositiveCount++
			res.PositiveFound = append(res.PositiveFound, tok.Text)
		case negativeWords[base]:
			res.NegativeCount++
			res.NegativeFound = append(res.NegativeFound, tok.Text)
		}
	}

	res.Score = Score(res.PositiveCount, res.NegativeCount)
	res.Label = Label(res.Score)
	return res, nil
}

// Normalize lowercases word and strips one known suffix when what remains is
// a lexicon word. Unknown words come back lowercased.
func Normalize(word string) string {
	word = strings.ToLower(word)
	if known(word) {
		return word
	}

	for _, suffix := range suffixes {
		if !strings.HasSuffix(word, suffix) || len(word) <= len(suffix)+2 {
			continue
		}
		stem := strings.TrimSuffix(word, suffix)
		candidates := []string{stem, stem + "e"}
		if strings.HasSuffix(word, "ies") && len(word) > 4 {
			candidates = append(candidates, strings.TrimSuffix(word, "ies")+"y")
		}
		for _, c := range candidates {
			if known(c) {
				return c
			}
		}
	}
	return word
}

func Score(positive, negative int) float64 {
	total := positive + negative
	if total == 0 {
		return NeutralScore
	}
	return math.Round(float64(positive)/float64(total)*100) / 100
}

func Label(score float64) string {
	switch {
	case score > positiveThreshold:
		return "Positive"
	case score < negativeThreshold:
		return "Negative"
	default:
		return "Neutral"
	}
}

func known(w string) bool {
	return positiveWords[w] || negativeWords[w]
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
