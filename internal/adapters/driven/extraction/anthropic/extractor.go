// Package anthropic provides an insight extractor using the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/diarymem/internal/adapters/driven/extraction"
	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.InsightExtractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultModel       = "claude-3-5-haiku-latest"
	DefaultTimeout     = 120 * time.Second
	DefaultTemperature = 0.3
)

const providerName = "anthropic"

// jsonInstruction is appended to the system prompt. The Messages API has
// no JSON mode, so the object is pulled out of the text reply by the core.
const jsonInstruction = "\n\nRespond with the JSON object only, without any surrounding prose."

// Config holds configuration for the Anthropic extractor.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL overrides the API endpoint (default: the SDK's endpoint).
	BaseURL string

	// Model is the Claude model to use (default: claude-3-5-haiku-latest).
	Model string

	// Temperature is the sampling temperature (default: 0.3).
	Temperature float64

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Extractor asks a Claude model for insights.
type Extractor struct {
	client      anthropic.Client
	model       string
	temperature float64
	promptStore driven.PromptStore
}

// NewExtractor creates a new Anthropic extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", domain.ErrConfiguration)
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

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	return &Extractor{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// SetPromptStore sets the prompt store for loading a customised prompt.
// If not set, the extractor uses the built-in prompt.
func (e *Extractor) SetPromptStore(store driven.PromptStore) {
	e.promptStore = store
}

// Extract returns the model's text reply for one entry.
func (e *Extractor) Extract(ctx context.Context, content, date string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: extraction.MaxOutputTokens,
		System: []anthropic.TextBlockParam{
			{Text: extraction.LoadPrompt(e.promptStore) + jsonInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(extraction.UserMessage(content, date))),
		},
		Temperature: anthropic.Float(e.temperature),
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapError("extract", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", domain.NewProviderError(providerName, "extract", 0, errors.New("no text in response"))
	}
	return out, nil
}

// ModelName returns the name of the chat model being used.
func (e *Extractor) ModelName() string {
	return e.model
}

// Ping validates the API key by listing models.
func (e *Extractor) Ping(ctx context.Context) error {
	if _, err := e.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
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
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(providerName, op, apiErr.StatusCode, err)
	}
	return domain.NewProviderError(providerName, op, 0, err)
}
