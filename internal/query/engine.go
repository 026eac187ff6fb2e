package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/cache"
	"github.com/docqa/backend/internal/documents"
	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/metrics"
	"github.com/docqa/backend/internal/ranking"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/internal/synthesis"
	"github.com/docqa/backend/pkg/logger"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoResults      = errors.New("no relevant documents found")
	ErrInternal       = errors.New("internal error")
)

// HistoryRecorder persists a record of every answered query.
type HistoryRecorder interface {
	InsertQueryRecord(ctx context.Context, record *models.QueryRecord) error
}

// Engine runs the cached retrieve, rank and synthesize pipeline over a
// shared document store and answer cache.
type Engine struct {
	store       documents.Reader
	embedder    embedding.Embedder
	synthesizer synthesis.Synthesizer
	cache       cache.Cache
	history     HistoryRecorder
	now         func() time.Time
}

type Option func(*Engine)

func WithHistory(h HistoryRecorder) Option {
	return func(e *Engine) { e.history = h }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store documents.Reader, embedder embedding.Embedder, synthesizer synthesis.Synthesizer, c cache.Cache, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		embedder:    embedder,
		synthesizer: synthesizer,
		cache:       c,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AnswerQuery answers req from the cache when possible, otherwise ranks the
// whole corpus and synthesizes a fresh answer. Failed queries never touch the
// cache.
func (e *Engine) AnswerQuery(ctx context.Context, req Request) (*models.Answer, error) {
	if err := req.Validate(); err != nil {
		metrics.QueryTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	start := e.now()
	key := cache.KeyFor(req.Question, req.TopK)

	logger.Info("Query received",
		zap.String("question", req.Question),
		zap.Int("top_k", req.TopK),
		zap.String("cache_key", key),
	)

	cached, hit, err := e.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache lookup failed, computing answer", zap.String("cache_key", key), zap.Error(err))
	}
	if hit {
		metrics.CacheHits.Inc()
		metrics.QueryTotal.WithLabelValues("ok").Inc()
		metrics.QueryDuration.WithLabelValues("hit").Observe(e.now().Sub(start).Seconds())

		cached.Timestamp = e.now()
		if !req.IncludeSources {
			cached.Sources = []ranking.ScoredDocument{}
		}

		logger.Info("Cache hit", zap.String("cache_key", key))
		e.record(ctx, req, &cached, true)
		return &cached, nil
	}
	metrics.CacheMisses.Inc()

	answer, err := e.compute(ctx, req, start)
	if err != nil {
		metrics.QueryTotal.WithLabelValues(statusLabel(err)).Inc()
		logger.Warn("Query failed", zap.String("question", req.Question), zap.Error(err))
		return nil, err
	}

	if err := e.cache.Put(ctx, key, *answer); err != nil {
		logger.Warn("Failed to store answer in cache", zap.String("cache_key", key), zap.Error(err))
	} else {
		logger.Debug("Answer cached", zap.String("cache_key", key), zap.Duration("ttl", e.cache.TTL()))
	}

	metrics.QueryTotal.WithLabelValues("ok").Inc()
	metrics.QueryDuration.WithLabelValues("miss").Observe(answer.ProcessingTimeMS / 1000)

	served := answer.Clone()
	if !req.IncludeSources {
		served.Sources = []ranking.ScoredDocument{}
	}
	e.record(ctx, req, &served, false)
	return &served, nil
}

func (e *Engine) compute(ctx context.Context, req Request, start time.Time) (*models.Answer, error) {
	count, err := e.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: add documents first", ranking.ErrEmptyCorpus)
	}

	sources, corpusSize, err := e.retrieve(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoResults
	}

	text, err := e.synthesizer.Synthesize(ctx, req.Question, sources)
	if err != nil {
		return nil, fmt.Errorf("%w: synthesis failed: %v", ErrInternal, err)
	}

	elapsed := e.now().Sub(start)
	processingMS := embedding.Round(float64(elapsed)/float64(time.Millisecond), 2)

	logger.Info("Query completed",
		zap.Float64("processing_time_ms", processingMS),
		zap.Int("documents_ranked", corpusSize),
		zap.Int("documents_retrieved", len(sources)),
		zap.Int("answer_length", len(text)),
	)

	return &models.Answer{
		Question:         req.Question,
		Answer:           text,
		Sources:          sources,
		Timestamp:        e.now(),
		ProcessingTimeMS: processingMS,
	}, nil
}

// Search ranks the corpus against query without synthesis or caching and
// keeps results scoring at least minScore.
func (e *Engine) Search(ctx context.Context, query string, limit int, minScore float64) ([]ranking.ScoredDocument, error) {
	if err := validateSearch(query, limit, minScore); err != nil {
		metrics.SearchTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	ranked, _, err := e.retrieve(ctx, query, limit)
	if err != nil {
		metrics.SearchTotal.WithLabelValues(statusLabel(err)).Inc()
		return nil, err
	}

	results := ranking.FilterMinScore(ranked, minScore)
	if len(results) == 0 {
		metrics.SearchTotal.WithLabelValues("no_results").Inc()
		return nil, ErrNoResults
	}

	metrics.SearchTotal.WithLabelValues("ok").Inc()
	logger.Debug("Search completed",
		zap.String("query", query),
		zap.Float64("min_score", minScore),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// retrieve embeds text and ranks a point-in-time snapshot of the store.
func (e *Engine) retrieve(ctx context.Context, text string, topK int) ([]ranking.ScoredDocument, int, error) {
	docs, err := e.store.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if len(docs) == 0 {
		return nil, 0, ranking.ErrEmptyCorpus
	}

	queryVec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyInput) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: query embedding failed: %v", ErrInternal, err)
	}

	corpus := make([]ranking.Candidate, 0, len(docs))
	for _, d := range docs {
		vec, err := e.embedder.Embed(ctx, d.Text)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: embedding %s failed: %v", ErrInternal, d.ID, err)
		}
		corpus = append(corpus, ranking.Candidate{ID: d.ID, Text: d.Text, Metadata: d.Metadata, Vector: vec})
	}
	metrics.DocumentsRanked.Observe(float64(len(corpus)))

	ranked, err := ranking.Rank(queryVec, corpus, topK)
	if err != nil {
		if errors.Is(err, ranking.ErrEmptyCorpus) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: ranking failed: %v", ErrInternal, err)
	}
	return ranked, len(corpus), nil
}

func (e *Engine) CacheStats(ctx context.Context) (cache.Stats, error) {
	if _, err := e.SweepCache(ctx); err != nil {
		return cache.Stats{}, err
	}
	stats, err := e.cache.Stats(ctx)
	if err != nil {
		return cache.Stats{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	metrics.CacheEntries.Set(float64(stats.Count))
	return stats, nil
}

func (e *Engine) CacheClear(ctx context.Context) (int, error) {
	n, err := e.cache.ClearAll(ctx)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	metrics.CacheEntries.Set(0)
	logger.Info("Cache cleared", zap.Int("entries_removed", n))
	return n, nil
}

func (e *Engine) SweepCache(ctx context.Context) (int, error) {
	n, err := e.cache.SweepExpired(ctx)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if n > 0 {
		metrics.CacheEvictions.Add(float64(n))
		logger.Debug("Expired cache entries swept", zap.Int("removed", n))
	}
	return n, nil
}

// RunCacheSweeper sweeps expired entries every interval until ctx is done.
func (e *Engine) RunCacheSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.SweepCache(ctx); err != nil {
				logger.Warn("Cache sweep failed", zap.Error(err))
			}
		}
	}
}

func (e *Engine) record(ctx context.Context, req Request, answer *models.Answer, hit bool) {
	if e.history == nil {
		return
	}
	rec := &models.QueryRecord{
		ID:               uuid.New().String(),
		Question:         req.Question,
		TopK:             req.TopK,
		CacheHit:         hit,
		SourceCount:      len(answer.Sources),
		ProcessingTimeMS: answer.ProcessingTimeMS,
		CreatedAt:        e.now(),
	}
	if err := e.history.InsertQueryRecord(ctx, rec); err != nil {
		logger.Warn("Failed to record query", zap.Error(err))
	}
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, ranking.ErrEmptyCorpus):
		return "empty_corpus"
	case errors.Is(err, embedding.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrNoResults):
		return "no_results"
	default:
		return "error"
	}
}
