// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/allencreed/Sora-Prompt-Tool/internal/api"
	"github.com/allencreed/Sora-Prompt-Tool/internal/config"
	"github.com/allencreed/Sora-Prompt-Tool/internal/di"
	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"github.com/allencreed/Sora-Prompt-Tool/internal/services"
	"github.com/allencreed/Sora-Prompt-Tool/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	// providers register themselves with the llm registry
	_ "github.com/allencreed/Sora-Prompt-Tool/internal/llm/providers/google"
	_ "github.com/allencreed/Sora-Prompt-Tool/internal/llm/providers/openai"
)

const shutdownTimeout = 30 * time.Second

// App owns the services and the HTTP server.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	container *di.Container
	router    *gin.Engine
	limiter   *api.RateLimiter
}

// InitServices builds every service into a new container, in dependency
// order.
func InitServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*di.Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	container := di.NewContainer()
	container.Register(di.Config, cfg)
	container.Register(di.Logger, logger)

	if err := os.MkdirAll(filepath.Join(cfg.DataDir, "exports"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	container.Register(di.Storage, fileStorage)

	llmService := services.NewLLMService(ctx, cfg.LLMProvider, llm.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.LLMBaseURL,
		DefaultModel: cfg.GenerateModel,
		Timeout:      cfg.LLMTimeout,
	}, logger)
	container.Register(di.LLM, llmService)

	credentials := services.NewCredentialService(llmService, cfg.HasAPIKey(), logger)
	container.Register(di.Credentials, credentials)

	hub := api.NewStatusHub(cfg.AllowedOrigins(), logger)
	container.Register(di.StatusHub, hub)

	sessions := services.NewSessionService(services.SessionConfig{
		TTL:          cfg.SessionTTL,
		SuccessReset: cfg.StatusSuccessReset,
		ErrorReset:   cfg.StatusErrorReset,
	}, hub, logger)
	container.Register(di.Sessions, sessions)

	container.Register(di.Prompts, services.NewPromptService(sessions, llmService, credentials, services.PromptServiceConfig{
		GenerateModel: cfg.GenerateModel,
		CheckModel:    cfg.CheckModel,
		Timeout:       cfg.LLMTimeout,
	}, logger))
	container.Register(di.Exports, services.NewExportService(sessions, fileStorage, logger))

	logger.Info("services initialised",
		zap.Strings("services", container.GetNames()),
		zap.String("llm_provider", llmService.GetProviderName()),
		zap.Bool("llm_ready", llmService.IsReady()),
		zap.Bool("key_ready", credentials.KeyReady()))
	return container, nil
}

// New builds the services and the router.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := InitServices(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		container: container,
	}
	if cfg.GenerateRateLimit > 0 {
		a.limiter = api.NewRateLimiter(cfg.GenerateRateLimit, cfg.GenerateRateWindow)
	}

	handler := api.NewHandler(api.HandlerDeps{
		Sessions:    di.MustResolve[*services.SessionService](container, di.Sessions),
		Prompts:     di.MustResolve[*services.PromptService](container, di.Prompts),
		Exports:     di.MustResolve[*services.ExportService](container, di.Exports),
		Credentials: di.MustResolve[*services.CredentialService](container, di.Credentials),
		Provider:    di.MustResolve[*services.LLMService](container, di.LLM),
		Hub:         di.MustResolve[*api.StatusHub](container, di.StatusHub),
		Logger:      logger,
	})
	a.router = api.SetupRouter(handler, api.RouterOptions{
		AllowedOrigins:  cfg.AllowedOrigins(),
		GenerateLimiter: a.limiter,
		EnableMetrics:   cfg.MetricsEnabled,
		Logger:          logger,
	})
	return a, nil
}

func (a *App) Container() *di.Container {
	return a.container
}

// Handler returns the HTTP handler of the API.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP and sweeps idle sessions until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	srv := &http.Server{
		Addr:        ":" + a.cfg.Port,
		Handler:     a.router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: generate lasts as long as the upstream call
		IdleTimeout: 60 * time.Second,
	}

	sessions := di.MustResolve[*services.SessionService](a.container, di.Sessions)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	a.logger.Info("http server stopped")
	return nil
}

// Close releases background resources. It is safe to call more than once.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if hub, err := di.Resolve[*api.StatusHub](a.container, di.StatusHub); err == nil {
		hub.Close()
	}
	if sessions, err := di.Resolve[*services.SessionService](a.container, di.Sessions); err == nil {
		sessions.Close()
	}
}
