package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/resilience/circuitbreaker"
	"logistics-news/internal/resilience/retry"
)

// AnthropicConfig holds model parameters for the Claude API.
// Anthropic has no embedding endpoint, so deployments using this
// provider pair it with an OpenAI-compatible Embedder.
type AnthropicConfig struct {
	Model             string
	MaxTokens         int
	ChatTimeout       time.Duration
	RequestsPerMinute int
}

// LoadAnthropicConfig reads configuration from the environment.
func LoadAnthropicConfig() AnthropicConfig {
	cfg := AnthropicConfig{
		Model:             os.Getenv("LLM_MODEL"),
		MaxTokens:         2048,
		ChatTimeout:       90 * time.Second,
		RequestsPerMinute: 60,
	}
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	return cfg
}

// AnthropicClient implements Enricher using the Claude API.
type AnthropicClient struct {
	client         anthropic.Client
	config         AnthropicConfig
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	limiter        *rate.Limiter
}

// NewAnthropicClient creates a client with the given API key.
func NewAnthropicClient(apiKey string, cfg AnthropicConfig) *AnthropicClient {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &AnthropicClient{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		config:         cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.LLMAPIConfig("anthropic")),
		retryConfig:    retry.LLMAPIConfig(),
		limiter:        rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

// Enrich runs the enrichment prompt through Claude and parses the
// structured reply.
func (c *AnthropicClient) Enrich(ctx context.Context, title, body, language string) (*entity.Enrichment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ChatTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := BuildEnrichmentPrompt(title, body, language)

	var raw string
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		result, err := c.circuitBreaker.Execute(func() (any, error) {
			return c.doEnrich(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("llm circuit breaker open, request rejected",
					slog.String("provider", "anthropic"),
					slog.String("state", c.circuitBreaker.State().String()))
			}
			return err
		}
		raw = result.(string)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return ParseEnrichment(raw)
}

func (c *AnthropicClient) doEnrich(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	if len(message.Content) == 0 {
		return "", errors.New("anthropic messages: empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", errors.New("anthropic messages: first block is not text")
	}
	return textBlock.Text, nil
}
