package services

import (
	"context"
	"errors"
	"testing"

	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"github.com/allencreed/Sora-Prompt-Tool/internal/llm/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func registerTestProvider(t *testing.T, name string, provider llm.Provider, seen *[]string) {
	t.Helper()
	llm.Register(name, func(_ context.Context, cfg llm.Config) (llm.Provider, error) {
		*seen = append(*seen, cfg.APIKey)
		return provider, nil
	})
}

func TestNewLLMServiceWithoutKey(t *testing.T) {
	svc := NewLLMService(context.Background(), "google", llm.Config{}, nil)

	assert.False(t, svc.IsReady())
	assert.Equal(t, "API key not configured", svc.GetReadyState())

	_, err := svc.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "test"})
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	assert.True(t, IsCredentialFailure(err))
}

func TestNewLLMServiceUnknownProvider(t *testing.T) {
	svc := NewLLMService(context.Background(), "no-such-provider", llm.Config{APIKey: "k"}, nil)

	assert.False(t, svc.IsReady())
	assert.Contains(t, svc.GetReadyState(), "Initialization failed")

	_, err := svc.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "test"})
	assert.ErrorIs(t, err, ErrLLMNotReady)
	assert.False(t, IsCredentialFailure(err))
}

func TestUpdateAPIKeyRebuildsProvider(t *testing.T) {
	provider := mocks.NewProvider(t)
	provider.On("GetName").Return("keyed").Maybe()
	provider.On("CompleteText", mock.Anything, mock.Anything).
		Return(&llm.CompletionResponse{Text: "ok"}, nil).Once()

	var keys []string
	registerTestProvider(t, "keyed-test", provider, &keys)

	svc := NewLLMService(context.Background(), "keyed-test", llm.Config{}, nil)
	require.False(t, svc.IsReady())

	require.NoError(t, svc.UpdateAPIKey(context.Background(), "user-key"))
	assert.True(t, svc.IsReady())
	assert.Equal(t, "Ready", svc.GetReadyState())

	// an empty key keeps the one already in use
	require.NoError(t, svc.UpdateAPIKey(context.Background(), ""))
	assert.Equal(t, []string{"user-key", "user-key"}, keys)

	resp, err := svc.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "test"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestUpdateAPIKeyWithoutAnyKey(t *testing.T) {
	svc := NewLLMService(context.Background(), "google", llm.Config{}, nil)
	assert.ErrorIs(t, svc.UpdateAPIKey(context.Background(), ""), llm.ErrMissingAPIKey)
}

func TestCompleteTextPassesProviderErrors(t *testing.T) {
	provider := mocks.NewProvider(t)
	provider.On("GetName").Return("mock")
	provider.On("CompleteText", mock.Anything, mock.Anything).Return(nil, errors.New("quota")).Once()

	svc := NewLLMServiceWithProvider(provider, nil)
	_, err := svc.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	assert.EqualError(t, err, "quota")
}
