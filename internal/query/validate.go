package query

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinQuestionLength = 5
	DefaultTopK       = 3
	MaxTopK           = 10

	MinSearchLength    = 3
	DefaultSearchLimit = 5
)

var questionPattern = regexp.MustCompile(`^[a-zA-Z0-9\s.,?!\-]+$`)

type Request struct {
	Question       string
	TopK           int
	IncludeSources bool
}

func (r Request) Validate() error {
	if utf8.RuneCountInString(r.Question) < MinQuestionLength {
		return fmt.Errorf("%w: question must be at least %d characters", ErrInvalidRequest, MinQuestionLength)
	}
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("%w: question must not be blank", ErrInvalidRequest)
	}
	if !questionPattern.MatchString(r.Question) {
		return fmt.Errorf("%w: question must only contain letters, numbers, spaces, and basic punctuation (. , ? ! -)", ErrInvalidRequest)
	}
	if r.TopK < 1 || r.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k must be between 1 and %d", ErrInvalidRequest, MaxTopK)
	}
	return nil
}

func validateSearch(query string, limit int, minScore float64) error {
	if utf8.RuneCountInString(query) < MinSearchLength {
		return fmt.Errorf("%w: query must be at least %d characters", ErrInvalidRequest, MinSearchLength)
	}
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query must not be blank", ErrInvalidRequest)
	}
	if limit < 1 {
		return fmt.Errorf("%w: limit must be at least 1", ErrInvalidRequest)
	}
	if math.IsNaN(minScore) || minScore < 0 || minScore > 1 {
		return fmt.Errorf("%w: min_score must be between 0.0 and 1.0", ErrInvalidRequest)
	}
	return nil
}
