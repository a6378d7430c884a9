// Package openai adapts the OpenAI-compatible chat completion API to the
// chat usecase's Completer contract.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/busantable/busantable/internal/domain"
	"github.com/busantable/busantable/internal/metrics"
)

const providerName = "openai"

// Completer sends chat completions to an OpenAI-compatible provider.
type Completer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat provider.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Complete implements chat.Completer. Returns the assistant message text
// with transport-level metrics recorded.
func (c *Completer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		metrics.ChatErrorsTotal.WithLabelValues(providerName, c.model, "api_error").Inc()
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		metrics.ChatErrorsTotal.WithLabelValues(providerName, c.model, "empty_response").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrChatProviderError)
	}

	// Record success metrics
	metrics.ChatRequestsTotal.WithLabelValues(providerName, c.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(providerName, c.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.ChatTokensTotal.WithLabelValues(providerName, c.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.ChatTokensTotal.WithLabelValues(providerName, c.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
		metrics.ChatTokensTotal.WithLabelValues(providerName, c.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Rate limits map to domain.ErrRateLimited; everything else is wrapped
// with domain.ErrChatProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("chat API error %d: %s: %w",
				apiErr.HTTPStatusCode, apiErr.Message, domain.ErrRateLimited)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrChatProviderError)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractMessage(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, domain.ErrChatProviderError)
	}

	return fmt.Errorf("chat request failed: %w", domain.ErrChatProviderError)
}

// extractMessage extracts the "message" field from a JSON error body.
func extractMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Error.Message
	}
	return ""
}
