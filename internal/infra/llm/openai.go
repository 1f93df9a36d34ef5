package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/resilience/circuitbreaker"
	"logistics-news/internal/resilience/retry"
)

// OpenAIConfig holds connection and model parameters for an
// OpenAI-compatible endpoint.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint for compatible providers.
	// Empty means the official endpoint.
	BaseURL string

	// Model is the chat model used for enrichment.
	Model string

	// EmbeddingModel must produce 1024-dimension vectors.
	EmbeddingModel string

	// ChatTimeout bounds one enrichment call. Default: 90s.
	ChatTimeout time.Duration

	// EmbeddingTimeout bounds one embedding call. Default: 30s.
	EmbeddingTimeout time.Duration

	// RequestsPerMinute throttles outbound calls. Default: 60.
	RequestsPerMinute int
}

// LoadOpenAIConfig reads configuration from the environment.
func LoadOpenAIConfig() OpenAIConfig {
	cfg := OpenAIConfig{
		BaseURL:           os.Getenv("LLM_BASE_URL"),
		Model:             os.Getenv("LLM_MODEL"),
		EmbeddingModel:    os.Getenv("EMBEDDING_MODEL"),
		ChatTimeout:       90 * time.Second,
		EmbeddingTimeout:  30 * time.Second,
		RequestsPerMinute: 60,
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-large"
	}
	return cfg
}

// OpenAIClient implements Enricher and Embedder against an
// OpenAI-compatible API, with rate limiting, retry and a circuit
// breaker shared across both call types.
type OpenAIClient struct {
	client         *openai.Client
	config         OpenAIConfig
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	limiter        *rate.Limiter
}

// NewOpenAIClient creates a client with the given API key.
func NewOpenAIClient(apiKey string, cfg OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientCfg),
		config:         cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.LLMAPIConfig("openai")),
		retryConfig:    retry.LLMAPIConfig(),
		limiter:        rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

// Enrich runs the enrichment prompt and parses the structured reply.
// A reply that fails validation is returned as ErrInvalidResponse and
// must not be retried.
func (c *OpenAIClient) Enrich(ctx context.Context, title, body, language string) (*entity.Enrichment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ChatTimeout)
	defer cancel()

	prompt := BuildEnrichmentPrompt(title, body, language)

	var raw string
	err := c.withReliability(ctx, func() (any, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.config.Model,
			Messages: []openai.ChatCompletionMessage{{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			}},
			Temperature: 0.1,
		})
		if err != nil {
			return nil, fmt.Errorf("openai chat: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("openai chat: empty response")
		}
		return resp.Choices[0].Message.Content, nil
	}, &raw)
	if err != nil {
		return nil, err
	}

	return ParseEnrichment(raw)
}

// Embed returns the 1024-dimension embedding of text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.EmbeddingTimeout)
	defer cancel()

	var vec []float32
	err := c.withReliability(ctx, func() (any, error) {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model:      openai.EmbeddingModel(c.config.EmbeddingModel),
			Input:      []string{text},
			Dimensions: entity.EmbeddingDimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, errors.New("openai embeddings: empty response")
		}
		return resp.Data[0].Embedding, nil
	}, &vec)
	if err != nil {
		return nil, err
	}

	if len(vec) != entity.EmbeddingDimensions {
		return nil, fmt.Errorf("%w: embedding dimension %d, want %d",
			ErrInvalidResponse, len(vec), entity.EmbeddingDimensions)
	}
	return vec, nil
}

// withReliability applies the rate limiter, retry policy and circuit
// breaker around one API call, storing the result into out.
func (c *OpenAIClient) withReliability(ctx context.Context, call func() (any, error), out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return retry.WithBackoff(ctx, c.retryConfig, func() error {
		result, err := c.circuitBreaker.Execute(call)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("llm circuit breaker open, request rejected",
					slog.String("provider", "openai"),
					slog.String("state", c.circuitBreaker.State().String()))
			}
			return err
		}
		switch dst := out.(type) {
		case *string:
			*dst = result.(string)
		case *[]float32:
			*dst = result.([]float32)
		}
		return nil
	})
}
