// Package openai provides an insight extractor using OpenAI chat completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/custodia-labs/diarymem/internal/adapters/driven/extraction"
	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.InsightExtractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTimeout     = 120 * time.Second
	DefaultTemperature = 0.3
)

const providerName = "openai"

// Config holds configuration for the OpenAI extractor.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Temperature is the sampling temperature (default: 0.3).
	Temperature float64

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Extractor asks an OpenAI chat model for insights in JSON mode.
type Extractor struct {
	client      openai.Client
	model       string
	temperature float64
	promptStore driven.PromptStore
}

// NewExtractor creates a new OpenAI extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	)

	return &Extractor{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// SetPromptStore sets the prompt store for loading a customised prompt.
// If not set, the extractor uses the built-in prompt.
func (e *Extractor) SetPromptStore(store driven.PromptStore) {
	e.promptStore = store
}

// Extract returns the model's JSON object for one entry.
func (e *Extractor) Extract(ctx context.Context, content, date string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extraction.LoadPrompt(e.promptStore)),
			openai.UserMessage(extraction.UserMessage(content, date)),
		},
		Temperature:         openai.Float(e.temperature),
		MaxCompletionTokens: openai.Int(extraction.MaxOutputTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapError("extract", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewProviderError(providerName, "extract", 0, errors.New("no response choices returned"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", domain.NewProviderError(providerName, "extract", 0, errors.New("empty response"))
	}
	return text, nil
}

// ModelName returns the name of the chat model being used.
func (e *Extractor) ModelName() string {
	return e.model
}

// Ping validates the service is reachable by listing models.
// This validates the API key without running inference.
func (e *Extractor) Ping(ctx context.Context) error {
	if _, err := e.client.Models.List(ctx); err != nil {
		return wrapError("ping", err)
	}
	return nil
}

// Close releases resources.
func (e *Extractor) Close() error {
	return nil
}

// wrapError converts SDK errors into provider errors carrying the HTTP status.
func wrapError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(providerName, op, apiErr.StatusCode, err)
	}
	return domain.NewProviderError(providerName, op, 0, err)
}
