// internal/services/llm_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"github.com/allencreed/Sora-Prompt-Tool/internal/utils"
	"go.uber.org/zap"
)

var ErrLLMNotReady = errors.New("llm service not ready")

// Completer is the outbound boundary used by the prompt service.
type Completer interface {
	CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	GetProviderName() string
}

// LLMService holds the active provider and rebuilds it when the key changes.
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	baseConfig    llm.Config
	isReady       bool
	readyState    string
	logger        *zap.Logger
}

// NewLLMService creates the named provider. A failed initialisation is not
// an error: the service stays unready and records why, so the key can still
// be supplied later.
func NewLLMService(ctx context.Context, providerName string, cfg llm.Config, logger *zap.Logger) *LLMService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LLMService{
		providerName: providerName,
		baseConfig:   cfg,
		readyState:   "Uninitialized",
		logger:       logger.Named("llm"),
	}

	if cfg.APIKey == "" {
		s.readyState = "API key not configured"
		return s
	}
	if err := s.initProvider(ctx, cfg); err != nil {
		s.logger.Warn("llm provider initialisation failed",
			zap.String("provider", providerName), zap.Error(err))
	}
	return s
}

// NewLLMServiceWithProvider wraps an already built provider.
func NewLLMServiceWithProvider(provider llm.Provider, logger *zap.Logger) *LLMService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMService{
		provider:     provider,
		providerName: provider.GetName(),
		isReady:      true,
		readyState:   "Ready",
		logger:       logger.Named("llm"),
	}
}

func (s *LLMService) initProvider(ctx context.Context, cfg llm.Config) error {
	provider, err := llm.GetProvider(ctx, s.providerName, cfg)

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	if err != nil {
		s.isReady = false
		s.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return err
	}
	s.provider = provider
	s.baseConfig = cfg
	s.isReady = true
	s.readyState = "Ready"
	return nil
}

// UpdateAPIKey rebuilds the provider with key. An empty key keeps the
// ambient one.
func (s *LLMService) UpdateAPIKey(ctx context.Context, key string) error {
	s.providerMutex.RLock()
	cfg := s.baseConfig
	s.providerMutex.RUnlock()

	if key != "" {
		cfg.APIKey = key
	}
	if cfg.APIKey == "" {
		return llm.ErrMissingAPIKey
	}
	if err := s.initProvider(ctx, cfg); err != nil {
		return err
	}
	s.logger.Info("llm provider updated", zap.String("provider", s.providerName))
	return nil
}

func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.isReady && s.provider != nil
}

// GetReadyState describes why the service is or is not ready.
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// CompleteText sends req to the active provider. No retries.
func (s *LLMService) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	state := s.readyState
	hasKey := s.baseConfig.APIKey != ""
	s.providerMutex.RUnlock()

	if provider == nil || !ready {
		if !hasKey {
			return nil, llm.ErrMissingAPIKey
		}
		return nil, fmt.Errorf("%w: %s", ErrLLMNotReady, state)
	}

	start := time.Now()
	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &llm.CompletionResponse{}
	}
	utils.ObserveTokens(provider.GetName(), req.Model, resp.PromptTokens, resp.OutputTokens)
	s.logger.Debug("completion finished",
		zap.String("model", req.Model),
		zap.String("finish_reason", resp.FinishReason),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}
