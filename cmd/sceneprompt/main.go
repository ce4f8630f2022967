// cmd/sceneprompt/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/allencreed/Sora-Prompt-Tool/internal/config"
	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/llm"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
	"github.com/allencreed/Sora-Prompt-Tool/internal/prompt"
	"github.com/allencreed/Sora-Prompt-Tool/internal/services"
	"github.com/allencreed/Sora-Prompt-Tool/internal/utils"
	"github.com/atotto/clipboard"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	_ "github.com/allencreed/Sora-Prompt-Tool/internal/llm/providers/google"
	_ "github.com/allencreed/Sora-Prompt-Tool/internal/llm/providers/openai"
)

const usage = `Usage: sceneprompt -scenes FILE [flags]

Compiles a scene list into a Sora prompt request and sends it to the
configured generative-text API. FILE holds a YAML or JSON list of scenes.

Flags:
`

// replaced in tests
var writeClipboard = clipboard.WriteAll

type options struct {
	scenesPath  string
	format      string
	compileOnly bool
	copy        bool
	model       string
	provider    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sceneprompt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.scenesPath, "scenes", "", "YAML or JSON file with the scene list")
	fs.StringVar(&opts.format, "format", "markdown", "output format: markdown or json")
	fs.BoolVar(&opts.compileOnly, "compile-only", false, "print the compiled request without sending it")
	fs.BoolVar(&opts.copy, "copy", false, "copy the generated prompt to the clipboard")
	fs.StringVar(&opts.model, "model", "", "model used for generation (default GENERATE_MODEL)")
	fs.StringVar(&opts.provider, "provider", "", "LLM provider: "+fmt.Sprint(llm.ListProviders())+" (default LLM_PROVIDER)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.scenesPath == "" {
		fmt.Fprintln(stderr, "-scenes is required")
		fs.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if opts.provider != "" {
		cfg.LLMProvider = opts.provider
	}
	if opts.model != "" {
		cfg.GenerateModel = opts.model
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.LogLevel,
		Encoding:   "console",
		OutputPath: "stderr",
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer logger.Sync()

	if err := execute(ctx, cfg, opts, stdout, logger); err != nil {
		fmt.Fprintln(stderr, apperrors.UserMessage(err, err.Error()))
		logger.Debug("sceneprompt failed", zap.Error(err))
		return 1
	}
	return 0
}

func execute(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer, logger *zap.Logger) error {
	format, err := models.ParseOutputFormat(opts.format)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("Unknown output format %q.", opts.format), err)
	}
	scenes, err := loadScenes(opts.scenesPath)
	if err != nil {
		return err
	}

	if opts.compileOnly {
		compiled, err := prompt.Compile(scenes, format)
		if err != nil {
			return err
		}
		return printCompiled(stdout, compiled)
	}

	llmService := services.NewLLMService(ctx, cfg.LLMProvider, llm.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.LLMBaseURL,
		DefaultModel: cfg.GenerateModel,
		Timeout:      cfg.LLMTimeout,
	}, logger)
	credentials := services.NewCredentialService(llmService, cfg.HasAPIKey(), logger)
	prompts := services.NewPromptService(nil, llmService, credentials, services.PromptServiceConfig{
		GenerateModel: cfg.GenerateModel,
		CheckModel:    cfg.CheckModel,
		Timeout:       cfg.LLMTimeout,
	}, logger)

	result, err := prompts.GenerateScenes(ctx, scenes, format)
	if err != nil {
		return err
	}
	if result.ParseErr != nil {
		logger.Warn("response is not valid JSON, printed as received", zap.Error(result.ParseErr))
	}
	fmt.Fprintln(stdout, result.Text)

	if opts.copy && result.Text != "" {
		if err := writeClipboard(result.Text); err != nil {
			logger.Warn("copy to clipboard failed", zap.Error(err))
		} else {
			logger.Info("prompt copied to clipboard")
		}
	}
	return nil
}

// loadScenes reads a scene list. YAML is a superset of JSON, so one
// decoder serves both.
func loadScenes(path string) ([]models.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenes file: %w", err)
	}

	var scenes []models.Scene
	if err := yaml.Unmarshal(data, &scenes); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("The scenes file is not a valid YAML or JSON list of scenes: %v", err), err)
	}
	store, err := services.NewSceneStoreFrom(scenes)
	if err != nil {
		return nil, err
	}
	return store.Scenes(), nil
}

func printCompiled(w io.Writer, compiled *prompt.Compiled) error {
	fmt.Fprintln(w, compiled.Instruction)
	if compiled.Schema == nil {
		return nil
	}
	schema, err := json.MarshalIndent(compiled.Schema, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	fmt.Fprintf(w, "\n--- response schema (%s) ---\n%s\n", compiled.ResponseMIMEType, schema)
	return nil
}
