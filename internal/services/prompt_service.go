// internal/services/prompt_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
	"github.com/allencreed/Sora-Prompt-Tool/internal/prompt"
	"github.com/allencreed/Sora-Prompt-Tool/internal/utils"
	"go.uber.org/zap"
)

// User-facing messages of the two outbound operations.
const (
	MsgCheckFailed        = "Failed to connect to the API. Please try again."
	MsgCheckCredential    = "Your API Key is invalid or has insufficient permissions. Please select a valid key."
	MsgGenerateCredential = "There is an issue with your API Key. Please select it again."
	MsgGenerateFailed     = "An unexpected error occurred. Please try again later."
)

const (
	opGenerate = "generate"
	opCheck    = "check"

	checkPrompt = "test"
)

var errEmptyCheckResponse = errors.New("received an empty response from the API")

// IsCredentialFailure reports whether an outbound error was caused by the
// API key.
func IsCredentialFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(strings.ToLower(msg), "api key") ||
		strings.Contains(msg, "requested entity was not found")
}

// PromptServiceConfig selects the models of the two operations.
type PromptServiceConfig struct {
	GenerateModel string
	CheckModel    string
	Timeout       time.Duration
}

// PromptService compiles scene lists and talks to the generative-text API.
type PromptService struct {
	sessions    *SessionService
	llm         Completer
	credentials *CredentialService
	cfg         PromptServiceConfig
	logger      *zap.Logger
}

func NewPromptService(sessions *SessionService, completer Completer, credentials *CredentialService, cfg PromptServiceConfig, logger *zap.Logger) *PromptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptService{
		sessions:    sessions,
		llm:         completer,
		credentials: credentials,
		cfg:         cfg,
		logger:      logger.Named("prompt"),
	}
}

// Compile builds the instruction for the session without sending it.
func (s *PromptService) Compile(sessionID string) (*prompt.Compiled, error) {
	var compiled *prompt.Compiled
	err := s.sessions.View(sessionID, func(sess *Session) error {
		var compileErr error
		compiled, compileErr = compileScenes(sess.store.Scenes(), sess.format)
		return compileErr
	})
	return compiled, err
}

// Generate compiles the session's scenes, sends them and stores the output.
// The session lock is released while the request is in flight.
func (s *PromptService) Generate(ctx context.Context, sessionID string) (SessionSnapshot, error) {
	var (
		compiled *prompt.Compiled
		scenes   []models.Scene
	)
	snap, err := s.sessions.Update(sessionID, func(sess *Session) error {
		scenes = sess.store.Scenes()
		c, err := compileScenes(scenes, sess.format)
		if err != nil {
			sess.lastError = apperrors.UserMessage(err, prompt.MsgScenesIncomplete)
			return err
		}
		if err := s.credentials.RequireKey(); err != nil {
			sess.lastError = MsgSelectKey
			return err
		}
		compiled = c
		sess.lastError = ""
		sess.loading = true
		sess.output = ""
		sess.outputScenes = nil
		sess.outputParsed = false
		return nil
	})
	if err != nil {
		return snap, err
	}

	result, genErr := s.generate(ctx, compiled)

	snap, err = s.sessions.Update(sessionID, func(sess *Session) error {
		sess.loading = false
		if genErr != nil {
			sess.lastError = apperrors.UserMessage(genErr, MsgGenerateFailed)
			return genErr
		}
		sess.output = result.Text
		sess.outputFormat = compiled.Format
		sess.outputScenes = scenes
		sess.outputParsed = result.Parsed
		return nil
	})
	if apperrors.IsNotFoundError(err) {
		s.logger.Warn("session removed while generating", zap.String("session_id", sessionID))
	}
	return snap, err
}

// GenerateScenes runs the whole pipeline for a scene list outside any
// session.
func (s *PromptService) GenerateScenes(ctx context.Context, scenes []models.Scene, format models.OutputFormat) (prompt.FormatResult, error) {
	compiled, err := compileScenes(scenes, format)
	if err != nil {
		return prompt.FormatResult{}, err
	}
	if err := s.credentials.RequireKey(); err != nil {
		return prompt.FormatResult{}, err
	}
	return s.generate(ctx, compiled)
}

func (s *PromptService) generate(ctx context.Context, compiled *prompt.Compiled) (prompt.FormatResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	model := s.cfg.GenerateModel
	start := time.Now()
	resp, err := s.llm.CompleteText(ctx, compiled.Request(model))
	elapsed := time.Since(start)

	if err != nil {
		if IsCredentialFailure(err) {
			s.credentials.Invalidate()
			s.observe(model, opGenerate, "credential_error", elapsed)
			return prompt.FormatResult{}, apperrors.NewCredentialError(MsgGenerateCredential, err)
		}
		s.observe(model, opGenerate, "service_error", elapsed)
		s.logger.Error("generation failed", zap.String("model", model), zap.Error(err))
		return prompt.FormatResult{}, apperrors.NewServiceError(MsgGenerateFailed, err)
	}
	s.observe(model, opGenerate, "success", elapsed)

	result := prompt.FormatOutput(resp.Text, compiled.Format)
	if result.ParseErr != nil {
		s.logger.Warn("response is not valid JSON, returning raw text", zap.Error(result.ParseErr))
	}
	if result.Parsed {
		s.checkSceneCount(result.Text, compiled.SceneCount)
	}
	return result, nil
}

// CheckConnection sends a minimal request and drives the session's
// connection status.
func (s *PromptService) CheckConnection(ctx context.Context, sessionID string) (SessionSnapshot, error) {
	var tracker *StatusTracker
	snap, err := s.sessions.Update(sessionID, func(sess *Session) error {
		sess.lastError = ""
		tracker = sess.status
		return nil
	})
	if err != nil {
		return snap, err
	}

	tracker.Set(StatusChecking)
	checkErr := s.Check(ctx)
	if checkErr != nil {
		tracker.Set(StatusError)
	} else {
		tracker.Set(StatusSuccess)
	}

	snap, err = s.sessions.Update(sessionID, func(sess *Session) error {
		if checkErr != nil {
			sess.lastError = apperrors.UserMessage(checkErr, MsgCheckFailed)
		}
		return checkErr
	})
	return snap, err
}

// Check sends the connectivity request. It succeeds when the response
// carries any text.
func (s *PromptService) Check(ctx context.Context) error {
	if err := s.credentials.RequireKey(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	model := s.cfg.CheckModel
	start := time.Now()
	resp, err := s.llm.CompleteText(ctx, llm.CompletionRequest{Prompt: checkPrompt, Model: model})
	if err == nil && (resp == nil || resp.Text == "") {
		err = errEmptyCheckResponse
	}
	elapsed := time.Since(start)

	if err != nil {
		if IsCredentialFailure(err) {
			s.credentials.Invalidate()
			s.observe(model, opCheck, "credential_error", elapsed)
			return apperrors.NewCredentialError(MsgCheckCredential, err)
		}
		s.observe(model, opCheck, "service_error", elapsed)
		s.logger.Error("connection check failed", zap.String("model", model), zap.Error(err))
		return apperrors.NewServiceError(MsgCheckFailed, err)
	}
	s.observe(model, opCheck, "success", elapsed)
	return nil
}

// checkSceneCount logs when a JSON response does not have one item per scene.
func (s *PromptService) checkSceneCount(text string, want int) {
	scenes, err := prompt.DecodeScenes(text)
	if err != nil {
		s.logger.Warn("response does not match the scene schema", zap.Error(err))
		return
	}
	if len(scenes) != want {
		s.logger.Warn("response scene count differs from request",
			zap.Int("requested", want), zap.Int("returned", len(scenes)))
	}
}

func (s *PromptService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *PromptService) observe(model, operation, status string, elapsed time.Duration) {
	utils.ObserveLLMRequest(s.llm.GetProviderName(), model, operation, status, elapsed)
}

func compileScenes(scenes []models.Scene, format models.OutputFormat) (*prompt.Compiled, error) {
	compiled, err := prompt.Compile(scenes, format)
	utils.ObserveCompilation(string(format), err == nil)
	return compiled, err
}
