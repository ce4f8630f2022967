// internal/llm/providers/openai/openai.go
package openai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	openaigo "github.com/sashabaranov/go-openai"
)

const (
	defaultModel = "gpt-4.1-mini"

	// json_schema response formats must have an object at the top level
	wrapperProperty = "items"
)

func init() {
	llm.Register("openai", New)
}

// Provider talks to any OpenAI-compatible chat completions endpoint.
type Provider struct {
	client       *openaigo.Client
	defaultModel string
}

// New creates an OpenAI-compatible provider. cfg.BaseURL selects the endpoint.
func New(_ context.Context, cfg llm.Config) (llm.Provider, error) {
	clientConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	switch {
	case cfg.HTTPClient != nil:
		clientConfig.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	return &Provider{client: openaigo.NewClientWithConfig(clientConfig), defaultModel: model}, nil
}

func (p *Provider) GetName() string {
	return "openai"
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	chatReq := openaigo.ChatCompletionRequest{
		Model: model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: req.Prompt},
		},
	}

	wrapped := false
	switch {
	case req.ResponseSchema != nil:
		schema := req.ResponseSchema
		if schema.Type != llm.TypeObject {
			schema = wrapSchema(schema)
			wrapped = true
		}
		chatReq.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openaigo.ChatCompletionResponseFormatJSONSchema{
				Name:   "response",
				Schema: schema,
			},
		}
	case req.ResponseMIMEType == "application/json":
		chatReq.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	result := &llm.CompletionResponse{
		ModelName:    model,
		ProviderName: p.GetName(),
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) == 0 {
		return result, nil
	}

	result.Text = resp.Choices[0].Message.Content
	result.FinishReason = string(resp.Choices[0].FinishReason)
	if wrapped {
		result.Text = unwrapText(result.Text)
	}
	return result, nil
}

func wrapSchema(inner *llm.Schema) *llm.Schema {
	return &llm.Schema{
		Type:          llm.TypeObject,
		Properties:    map[string]*llm.Schema{wrapperProperty: inner},
		PropertyOrder: []string{wrapperProperty},
		Required:      []string{wrapperProperty},
	}
}

// unwrapText returns the wrapped value as JSON text, or text unchanged when
// it does not have the wrapper shape.
func unwrapText(text string) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return text
	}
	inner, ok := envelope[wrapperProperty]
	if !ok {
		return text
	}
	return string(inner)
}
