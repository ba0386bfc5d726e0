package config

import (
	"os"
	"strconv"

	"panelscore/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Raters   RaterKeys
	Run      RunConfig
	Report   ReportConfig
}

// DatabaseConfig holds database connection settings. An empty URL means
// call records are kept in memory for the life of the process.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// RaterKeys holds the per-provider API keys
type RaterKeys struct {
	OpenAIKey    string
	AnthropicKey string
	GoogleKey    string
}

// RunConfig holds collection and parsing settings
type RunConfig struct {
	TrialsPerRater  int
	ParseWorkers    int
	PromptsDir      string
	MaxOutputTokens int
}

// ReportConfig holds report generation settings
type ReportConfig struct {
	OutputDir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Raters: RaterKeys{
			OpenAIKey:    getEnvOrDefault("OPENAI_API_KEY", ""),
			AnthropicKey: getEnvOrDefault("ANTHROPIC_API_KEY", ""),
			GoogleKey:    getEnvOrDefault("GEMINI_API_KEY", ""),
		},
		Run: RunConfig{
			TrialsPerRater:  getEnvIntOrDefault("TRIALS_PER_RATER", 3),
			ParseWorkers:    getEnvIntOrDefault("PARSE_WORKERS", 8),
			PromptsDir:      getEnvOrDefault("PROMPTS_DIR", "./prompts"),
			MaxOutputTokens: getEnvIntOrDefault("MAX_OUTPUT_TOKENS", 16000),
		},
		Report: ReportConfig{
			OutputDir: getEnvOrDefault("REPORT_DIR", "./reports"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// KeyFor returns the API key for a provider name, empty when unset
func (k RaterKeys) KeyFor(provider string) string {
	switch provider {
	case "openai":
		return k.OpenAIKey
	case "anthropic":
		return k.AnthropicKey
	case "google":
		return k.GoogleKey
	}
	return ""
}

func validateConfig(config *Config) error {
	if config.Run.TrialsPerRater < 1 {
		return errors.ConfigInvalid("TRIALS_PER_RATER must be at least 1")
	}
	if config.Run.ParseWorkers < 1 {
		return errors.ConfigInvalid("PARSE_WORKERS must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
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
