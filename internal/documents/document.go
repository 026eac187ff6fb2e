package documents

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"unicode/utf8"
)

const MinTextLength = 10

var (
	ErrNotFound        = errors.New("document not found")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrInvalidDocument = errors.New("invalid document")
)

// Letters and digits from any script, plus _ and -. At least one letter or
// digit is required.
var idPattern = regexp.MustCompile(`^[\p{L}\p{N}_-]*[\p{L}\p{N}][\p{L}\p{N}_-]*$`)

type Document struct {
	ID       string         `json:"doc_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: doc_id is required", ErrInvalidDocument)
	}
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("%w: doc_id must be alphanumeric with _ or -", ErrInvalidDocument)
	}
	if utf8.RuneCountInString(d.Text) < MinTextLength {
		return fmt.Errorf("%w: text must be at least %d characters", ErrInvalidDocument, MinTextLength)
	}
	if strings.TrimSpace(d.Text) == "" {
		return fmt.Errorf("%w: text must contain at least one word", ErrInvalidDocument)
	}
	return nil
}

// Category returns the "category" metadata value, or "uncategorized".
func (d Document) Category() string {
	if c, ok := d.Metadata["category"].(string); ok && c != "" {
		return c
	}
	return "uncategorized"
}

func (d Document) clone() Document {
	md := maps.Clone(d.Metadata)
	if md == nil {
		md = map[string]any{}
	}
	return Document{ID: d.ID, Text: d.Text, Metadata: md}
}

// Reader is the read side the query pipeline depends on. List returns a
// point-in-time copy in insertion order.
type Reader interface {
	List(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int, error)
}

type Store interface {
	Reader
	Get(ctx context.Context, id string) (Document, error)
	Add(ctx context.Context, doc Document) error
	// Update replaces an existing document and returns the previous version.
	Update(ctx context.Context, doc Document) (Document, error)
	Delete(ctx context.Context, id string) error
}
