// internal/llm/providers/google/google.go
package google

import (
	"context"
	"fmt"
	"net/http"

	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

func init() {
	llm.Register("google", New)
}

// Provider talks to the Gemini API through the Gen AI SDK.
type Provider struct {
	client       *genai.Client
	defaultModel string
}

// New creates a Gemini provider. cfg.BaseURL overrides the API endpoint.
func New(ctx context.Context, cfg llm.Config) (llm.Provider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	switch {
	case cfg.HTTPClient != nil:
		clientConfig.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	return &Provider{client: client, defaultModel: model}, nil
}

func (p *Provider) GetName() string {
	return "google"
}

// CompleteText sends a single user turn. An empty candidate list yields an
// empty text, not an error.
func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var config *genai.GenerateContentConfig
	if req.ResponseMIMEType != "" || req.ResponseSchema != nil {
		config = &genai.GenerateContentConfig{
			ResponseMIMEType: req.ResponseMIMEType,
			ResponseSchema:   ToGenaiSchema(req.ResponseSchema),
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, err
	}

	result := &llm.CompletionResponse{
		Text:         resp.Text(),
		ModelName:    model,
		ProviderName: p.GetName(),
	}
	if len(resp.Candidates) > 0 {
		result.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// ToGenaiSchema converts a provider-neutral schema to the SDK type.
func ToGenaiSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:             genaiType(s.Type),
		Description:      s.Description,
		Required:         s.Required,
		PropertyOrdering: s.PropertyOrder,
		Items:            ToGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = ToGenaiSchema(prop)
		}
	}
	return out
}

func genaiType(t llm.SchemaType) genai.Type {
	switch t {
	case llm.TypeArray:
		return genai.TypeArray
	case llm.TypeObject:
		return genai.TypeObject
	case llm.TypeString:
		return genai.TypeString
	case llm.TypeInteger:
		return genai.TypeInteger
	case llm.TypeNumber:
		return genai.TypeNumber
	case llm.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}
