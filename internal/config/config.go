// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	DataDir     string `envconfig:"DATA_DIR" default:"data"`

	// Serve /metrics
	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`

	// Comma separated; "*" allows any origin
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// LLM settings
	LLMProvider   string        `envconfig:"LLM_PROVIDER" default:"google"`
	APIKey        string        `envconfig:"API_KEY"`
	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	LLMBaseURL    string        `envconfig:"LLM_BASE_URL"`
	CheckModel    string        `envconfig:"CHECK_MODEL" default:"gemini-2.5-flash"`
	GenerateModel string        `envconfig:"GENERATE_MODEL" default:"gemini-3-pro-preview"`
	LLMTimeout    time.Duration `envconfig:"LLM_TIMEOUT" default:"0s"`

	// Workspace sessions
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	StatusSuccessReset time.Duration `envconfig:"STATUS_SUCCESS_RESET" default:"3s"`
	StatusErrorReset   time.Duration `envconfig:"STATUS_ERROR_RESET" default:"5s"`

	// Requests per window per client IP on the generate endpoint
	GenerateRateLimit  int           `envconfig:"GENERATE_RATE_LIMIT" default:"30"`
	GenerateRateWindow time.Duration `envconfig:"GENERATE_RATE_WINDOW" default:"1m"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = cfg.GeminiAPIKey
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.LLMProvider == "" {
		return fmt.Errorf("LLM_PROVIDER must not be empty")
	}
	if c.GenerateModel == "" || c.CheckModel == "" {
		return fmt.Errorf("GENERATE_MODEL and CHECK_MODEL must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.StatusSuccessReset < 0 || c.StatusErrorReset < 0 {
		return fmt.Errorf("status reset delays must not be negative")
	}
	if c.GenerateRateLimit < 0 {
		return fmt.Errorf("GENERATE_RATE_LIMIT must not be negative")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AllowedOrigins splits CORSAllowedOrigins into a slice.
func (c *Config) AllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	origins := strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
	result := origins[:0]
	for _, origin := range origins {
		if origin != "" {
			result = append(result, origin)
		}
	}
	return result
}

// HasAPIKey reports whether an ambient API key is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}
