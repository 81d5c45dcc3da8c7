// Package config collects the environment-driven settings. Run parameters
// (lookback, limits, output path) arrive via CLI flags and are merged in by
// the command layer.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"secbrief/internal/fetch"
)

// AI provider names accepted in AI_PROVIDER.
const (
	ProviderWorkers = "workers"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

type Config struct {
	// Run parameters
	LookbackDays   int
	PerSourceLimit int
	OutputPath     string
	AllowFetch     bool
	SourcesPath    string // empty selects the built-in registry

	// AI rewrite settings; an empty provider disables the AI tier
	AIProvider    string
	AIAccountID   string
	AIToken       string
	AIModel       string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	MaxAIRequests int

	// Network settings
	FeedTimeout       time.Duration
	PageTimeout       time.Duration
	ImageTimeout      time.Duration
	SourceConcurrency int

	// App settings
	Debug          bool
	MonitoringAddr string // empty disables the monitoring server
}

func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		LookbackDays:      7,
		PerSourceLimit:    25,
		OutputPath:        "secbrief.html",
		AllowFetch:        true,
		MaxAIRequests:     10,
		FeedTimeout:       20 * time.Second,
		PageTimeout:       fetch.DefaultPageTimeout,
		ImageTimeout:      fetch.DefaultImageTimeout,
		SourceConcurrency: 4,
	}

	cfg.SourcesPath = os.Getenv("SOURCES_FILE")

	cfg.AIProvider = os.Getenv("AI_PROVIDER")
	cfg.AIAccountID = os.Getenv("AI_ACCOUNT_ID")
	cfg.AIToken = os.Getenv("AI_API_TOKEN")
	cfg.AIModel = os.Getenv("AI_MODEL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	// With no explicit provider, pick whichever credential is present.
	if cfg.AIProvider == "" {
		switch {
		case cfg.AIAccountID != "" && cfg.AIToken != "":
			cfg.AIProvider = ProviderWorkers
		case cfg.GeminiAPIKey != "":
			cfg.AIProvider = ProviderGemini
		case cfg.OpenAIAPIKey != "":
			cfg.AIProvider = ProviderOpenAI
		}
	}

	cfg.MaxAIRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", cfg.MaxAIRequests)
	cfg.SourceConcurrency = getEnvIntOrDefault("SOURCE_CONCURRENCY", cfg.SourceConcurrency)

	if v := os.Getenv("FEED_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.FeedTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("PAGE_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.PageTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("IMAGE_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.ImageTimeout = time.Duration(val) * time.Second
		}
	}

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}
	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		cfg.MonitoringAddr = ":" + getEnvOrDefault("MONITORING_PORT", "8080")
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	switch c.AIProvider {
	case "":
		// AI tier disabled
	case ProviderWorkers:
		if c.AIAccountID == "" || c.AIToken == "" {
			return fmt.Errorf("AI_PROVIDER=workers needs AI_ACCOUNT_ID and AI_API_TOKEN")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("AI_PROVIDER=gemini needs GEMINI_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("AI_PROVIDER=openai needs OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}

	if c.SourceConcurrency < 1 {
		return fmt.Errorf("SOURCE_CONCURRENCY must be at least 1")
	}
	return nil
}
