package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/ranking"
	"github.com/docqa/backend/internal/synthesis"
	"github.com/docqa/backend/pkg/circuitbreaker"
	"github.com/docqa/backend/pkg/logger"
	"github.com/docqa/backend/pkg/retry"
)

const systemPrompt = `You are a helpful assistant answering questions about a document collection.
Answer ONLY from the provided context. If the context does not contain the answer, say so.
Be concise.`

// API is the subset of the OpenAI client used here.
type API interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
}

// Client implements embedding.Embedder and synthesis.Synthesizer on top of
// the OpenAI API.
type Client struct {
	api         API
	cfg         Config
	cb          *circuitbreaker.Breaker
	retryConfig retry.Config
}

var (
	_ embedding.Embedder     = (*Client)(nil)
	_ synthesis.Synthesizer = (*Client)(nil)
)

func NewClient(cfg Config) *Client {
	return NewClientWithAPI(openai.NewClient(cfg.APIKey), cfg)
}

func NewClientWithAPI(api API, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("LLM client initialized",
		zap.String("model", cfg.Model),
		zap.String("embedding_model", cfg.EmbeddingModel),
	)

	return &Client{
		api: api,
		cfg: cfg,
		cb: circuitbreaker.New("llm", circuitbreaker.Config{
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			SuccessThreshold: 2,
			Logger:           logger.GetLogger(),
		}),
		retryConfig: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   500 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

func (c *Client) Name() string { return "openai:" + c.cfg.EmbeddingModel }

func (c *Client) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var vec embedding.Vector
	err := c.cb.Execute(func() error {
		var err error
		vec, err = retry.DoWithResult(ctx, c.retryConfig, func(ctx context.Context) (embedding.Vector, error) {
			resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: []string{text},
				Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
			})
			if err != nil {
				return nil, classify(fmt.Errorf("failed to generate embedding: %w", err))
			}
			if len(resp.Data) == 0 {
				return nil, retry.Permanent(errors.New("embedding response has no data"))
			}

			out := make(embedding.Vector, len(resp.Data[0].Embedding))
			for i, v := range resp.Data[0].Embedding {
				out[i] = float64(v)
			}
			return out, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return vec, nil
}

func (c *Client) Synthesize(ctx context.Context, question string, docs []ranking.ScoredDocument) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", formatContext(docs), question)

	var content string
	err := c.cb.Execute(func() error {
		var err error
		content, err = retry.DoWithResult(ctx, c.retryConfig, func(ctx context.Context) (string, error) {
			resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: c.cfg.Model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: userPrompt},
				},
				Temperature: c.cfg.Temperature,
				MaxTokens:   c.cfg.MaxTokens,
			})
			if err != nil {
				return "", classify(fmt.Errorf("failed to create completion: %w", err))
			}
			if len(resp.Choices) == 0 {
				return "", retry.Permanent(errors.New("completion response has no choices"))
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)
			return resp.Choices[0].Message.Content, nil
		})
		return err
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

func formatContext(docs []ranking.ScoredDocument) string {
	if len(docs) == 0 {
		return "No documents available."
	}

	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] (%s, score %.4f) %s\n", i+1, d.DocID, d.SimilarityScore, d.Text)
	}
	return b.String()
}

// classify marks client errors (4xx other than 429) as permanent.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
			return retry.Permanent(err)
		}
	}
	return err
}
