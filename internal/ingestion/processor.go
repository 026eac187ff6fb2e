package ingestion

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/documents"
	"github.com/docqa/backend/pkg/logger"
	"github.com/docqa/backend/pkg/utils"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

var (
	ErrNoContent = errors.New("no content extracted from HTML")

	whitespace = regexp.MustCompile(`\s+`)
)

// HTMLRequest describes one HTML page to turn into documents.
type HTMLRequest struct {
	DocID     string
	SourceURL string
	HTML      string
	Category  string
	Metadata  map[string]any
}

// Processor extracts readable text from HTML and stores it as one document,
// or as several chunk documents when the text exceeds the chunk size.
type Processor struct {
	store        documents.Store
	chunkSize    int
	chunkOverlap int
	now          func() time.Time
}

func NewProcessor(store documents.Store) *Processor {
	return &Processor{
		store:        store,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		now:          time.Now,
	}
}

func (p *Processor) WithChunking(size, overlap int) *Processor {
	if size > 0 {
		p.chunkSize = size
	}
	if overlap >= 0 {
		p.chunkOverlap = overlap
	}
	return p
}

func (p *Processor) ProcessHTML(ctx context.Context, req HTMLRequest) ([]documents.Document, error) {
	logger.Info("Processing HTML document", zap.String("url", req.SourceURL), zap.Int("bytes", len(req.HTML)))

	page, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	text := cleanText(page)
	if text == "" {
		return nil, ErrNoContent
	}

	docID := req.DocID
	if docID == "" {
		seed := req.SourceURL
		if seed == "" {
			seed = text
		}
		docID = "html_" + utils.HashString(seed)[:12]
	}

	base := map[string]any{
		"title":       extractTitle(page),
		"source":      "html",
		"ingested_at": p.now().UTC().Format(time.RFC3339),
	}
	if req.SourceURL != "" {
		base["source_url"] = req.SourceURL
	}
	if req.Category != "" {
		base["category"] = req.Category
	}
	for k, v := range req.Metadata {
		base[k] = v
	}

	chunks := p.chunkText(text)
	docs := make([]documents.Document, 0, len(chunks))
	for i, chunk := range chunks {
		md := make(map[string]any, len(base)+2)
		for k, v := range base {
			md[k] = v
		}
		id := docID
		if len(chunks) > 1 {
			id = fmt.Sprintf("%s_chunk_%d", docID, i)
			md["parent_id"] = docID
			md["chunk_index"] = i
		}
		doc := documents.Document{ID: id, Text: chunk, Metadata: md}
		if err := doc.Validate(); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	for i, doc := range docs {
		if err := p.store.Add(ctx, doc); err != nil {
			p.rollback(ctx, docs[:i])
			return nil, err
		}
	}

	logger.Info("HTML document ingested",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(docs)),
		zap.Int("text_length", len(text)),
	)

	return docs, nil
}

func (p *Processor) rollback(ctx context.Context, added []documents.Document) {
	for _, doc := range added {
		if err := p.store.Delete(ctx, doc.ID); err != nil {
			logger.Warn("Failed to roll back chunk", zap.String("doc_id", doc.ID), zap.Error(err))
		}
	}
}

func cleanText(page *goquery.Document) string {
	page.Find("script, style, noscript, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	root := page.Find("body")
	if root.Length() == 0 {
		root = page.Selection
	}

	text := whitespace.ReplaceAllString(root.Text(), " ")
	return strings.TrimSpace(text)
}

func extractTitle(page *goquery.Document) string {
	title := strings.TrimSpace(page.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(page.Find("h1").First().Text())
	}
	if title == "" {
		title = "Untitled"
	}
	return whitespace.ReplaceAllString(title, " ")
}

// chunkText splits text on word boundaries into pieces of at most chunkSize
// bytes, repeating the last chunkOverlap/10 words at the start of the next
// piece.
func (p *Processor) chunkText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	size := 0

	for _, word := range words {
		wordLen := len(word) + 1

		if size+wordLen > p.chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			overlapStart := max(0, len(current)-p.chunkOverlap/10)
			current = append([]string(nil), current[overlapStart:]...)
			size = 0
			for _, w := range current {
				size += len(w) + 1
			}
		}

		current = append(current, word)
		size += wordLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
