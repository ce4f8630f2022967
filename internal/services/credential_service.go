// internal/services/credential_service.go
package services

import (
	"context"
	"sync/atomic"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"go.uber.org/zap"
)

const (
	MsgSelectKey       = "Please select your API key."
	MsgKeySelectFailed = "Could not apply the selected API key."
)

// KeySelector replaces the key used for outbound requests.
type KeySelector interface {
	UpdateAPIKey(ctx context.Context, key string) error
}

// CredentialService caches whether a usable API key has been selected.
type CredentialService struct {
	ready    atomic.Bool
	selector KeySelector
	logger   *zap.Logger
}

// NewCredentialService initialises the flag from hasSelectedKey, which is
// checked once at startup.
func NewCredentialService(selector KeySelector, hasSelectedKey bool, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CredentialService{
		selector: selector,
		logger:   logger.Named("credentials"),
	}
	s.ready.Store(hasSelectedKey)
	return s
}

func (s *CredentialService) KeyReady() bool {
	return s.ready.Load()
}

// SelectKey hands key to the selector and marks the key ready without
// confirming it works; the next failed request clears the flag again.
func (s *CredentialService) SelectKey(ctx context.Context, key string) error {
	if s.selector != nil {
		if err := s.selector.UpdateAPIKey(ctx, key); err != nil {
			s.logger.Warn("api key selection failed", zap.Error(err))
			return apperrors.NewCredentialError(MsgKeySelectFailed, err)
		}
	}
	s.ready.Store(true)
	s.logger.Info("api key selected")
	return nil
}

// Invalidate forces the key to be selected again.
func (s *CredentialService) Invalidate() {
	if s.ready.Swap(false) {
		s.logger.Info("api key invalidated")
	}
}

// RequireKey fails with a credential error while no key is selected.
func (s *CredentialService) RequireKey() error {
	if !s.KeyReady() {
		return apperrors.NewCredentialError(MsgSelectKey, nil)
	}
	return nil
}
