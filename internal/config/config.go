package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Gemini
	GeminiAPIKey                 string
	GeminiModel                  string
	GeminiSchemaFallbackPatterns []string
	ImageFetchTimeout            time.Duration

	// Supabase
	SupabaseURL        string
	SupabaseJWTSecret  string
	SupabaseProjectRef string

	// Database
	DatabaseURL string

	// Server
	Port        string
	Environment string
}

// ClientConfig configures the draftctl client.
type ClientConfig struct {
	APIBaseURL            string
	SupabaseURL           string
	SupabaseAnonKey       string
	SupabaseProjectRef    string
	SupabaseStorageBucket string
	StatePath             string
	StatePassphrase       string
	Environment           string
}

// loadDotEnv reads .env when present. Variables already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		GeminiAPIKey:                 getEnv("GEMINI_API_KEY", ""),
		GeminiModel:                  getEnv("GEMINI_MODEL", ""),
		GeminiSchemaFallbackPatterns: getEnvList("GEMINI_SCHEMA_FALLBACK_PATTERNS"),
		ImageFetchTimeout:            getEnvDuration("IMAGE_FETCH_TIMEOUT", 30*time.Second),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseProjectRef: getEnv("SUPABASE_PROJECT_REF", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("IMAGE_FETCH_TIMEOUT must be positive")
	}
	return nil
}

func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	cfg := &ClientConfig{
		APIBaseURL:            strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		SupabaseURL:           strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:       getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseProjectRef:    getEnv("SUPABASE_PROJECT_REF", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "listing-inputs"),
		StatePath:             getEnv("DRAFTCTL_STATE_PATH", "draftctl.db"),
		StatePassphrase:       getEnv("DRAFTCTL_STATE_PASSPHRASE", ""),
		Environment:           getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	if c.StatePassphrase == "" {
		return fmt.Errorf("DRAFTCTL_STATE_PASSPHRASE is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
