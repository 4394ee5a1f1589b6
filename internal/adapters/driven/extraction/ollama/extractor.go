// Package ollama provides an insight extractor using a local Ollama model.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/diarymem/internal/adapters/driven/extraction"
	"github.com/custodia-labs/diarymem/internal/core/domain"
	"github.com/custodia-labs/diarymem/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.InsightExtractor = (*Extractor)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultModel       = "llama3.2"
	DefaultTimeout     = 120 * time.Second
	DefaultTemperature = 0.3
)

const providerName = "ollama"

// Config holds configuration for the Ollama extractor.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the chat model to use (default: llama3.2).
	Model string

	// Temperature is the sampling temperature (default: 0.3).
	Temperature float64

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Extractor asks an Ollama chat model for insights in JSON format mode.
type Extractor struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
	promptStore driven.PromptStore
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *options      `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewExtractor creates a new Ollama extractor.
func NewExtractor(cfg Config) *Extractor {
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

	return &Extractor{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// SetPromptStore sets the prompt store for loading a customised prompt.
// If not set, the extractor uses the built-in prompt.
func (e *Extractor) SetPromptStore(store driven.PromptStore) {
	e.promptStore = store
}

// Extract returns the model's JSON object for one entry.
func (e *Extractor) Extract(ctx context.Context, content, date string) (string, error) {
	reqBody := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: extraction.LoadPrompt(e.promptStore)},
			{Role: "user", Content: extraction.UserMessage(content, date)},
		},
		Stream: false,
		Format: "json",
		Options: &options{
			NumPredict:  extraction.MaxOutputTokens,
			Temperature: e.temperature,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/api/chat",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.NewProviderError(providerName, "extract", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", domain.NewProviderError(providerName, "extract", resp.StatusCode,
				errors.New("failed to read response"))
		}
		return "", domain.NewProviderError(providerName, "extract", resp.StatusCode,
			errors.New(strings.TrimSpace(string(body))))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", domain.NewProviderError(providerName, "extract", resp.StatusCode,
			fmt.Errorf("decode response: %w", err))
	}
	if chatResp.Error != "" {
		return "", domain.NewProviderError(providerName, "extract", resp.StatusCode, errors.New(chatResp.Error))
	}

	text := strings.TrimSpace(chatResp.Message.Content)
	if text == "" {
		return "", domain.NewProviderError(providerName, "extract", resp.StatusCode, errors.New("empty response"))
	}
	return text, nil
}

// ModelName returns the name of the chat model being used.
func (e *Extractor) ModelName() string {
	return e.model
}

// Ping validates Ollama is reachable by listing installed models.
func (e *Extractor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.NewProviderError(providerName, "ping", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewProviderError(providerName, "ping", resp.StatusCode,
			fmt.Errorf("unexpected status %s", resp.Status))
	}
	return nil
}

// Close releases resources.
func (e *Extractor) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
