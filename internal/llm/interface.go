// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrMissingAPIKey   = errors.New("api key is not configured")
)

// CompletionRequest is a single-turn text generation request.
type CompletionRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`

	// ResponseMIMEType constrains the response, e.g. "application/json".
	ResponseMIMEType string  `json:"response_mime_type,omitempty"`
	ResponseSchema   *Schema `json:"response_schema,omitempty"`
}

// CompletionResponse carries the single text payload of a response.
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// Provider is implemented by every generative-text backend.
type Provider interface {
	GetName() string
	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Config is passed to a provider factory.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// ProviderFactory creates a configured provider.
type ProviderFactory func(ctx context.Context, cfg Config) (Provider, error)

var (
	providersMu sync.RWMutex
	providers   = make(map[string]ProviderFactory)
)

// Register makes a provider available by name. Providers call it from init.
func Register(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// GetProvider creates an instance of the named provider.
func GetProvider(ctx context.Context, name string, cfg Config) (Provider, error) {
	providersMu.RLock()
	factory, exists := providers[name]
	providersMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return factory(ctx, cfg)
}

// ListProviders returns the registered provider names in sorted order.
func ListProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
