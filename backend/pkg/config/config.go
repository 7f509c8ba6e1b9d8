package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "kgraph-atlas/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// Graph views
	DefaultLayoutMode string        // ring or tree
	RequestTimeout    time.Duration // Upper bound for a single data-layer call
	ViewIdleTimeout   time.Duration // Views untouched for this long are closed

	// Observability
	MetricsEnabled bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:     getEnv("NEO4J_DATABASE", ""),
		DefaultLayoutMode: strings.ToLower(getEnv("DEFAULT_LAYOUT_MODE", "ring")),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 10000)) * time.Millisecond,
		ViewIdleTimeout:   time.Duration(getEnvInt("VIEW_IDLE_TIMEOUT_MIN", 30)) * time.Minute,
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigValidationFailed("NEO4J_URI", "is required")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigValidationFailed("NEO4J_USER", "is required")
	}
	if c.Neo4jPassword == "" {
		return apperrors.NewConfigValidationFailed("NEO4J_PASSWORD", "is required")
	}
	if c.DefaultLayoutMode != "ring" && c.DefaultLayoutMode != "tree" {
		return apperrors.NewConfigValidationFailed("DEFAULT_LAYOUT_MODE", fmt.Sprintf("must be ring or tree, got %q", c.DefaultLayoutMode))
	}
	if c.RequestTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("REQUEST_TIMEOUT_MS", "must be positive")
	}
	if c.ViewIdleTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("VIEW_IDLE_TIMEOUT_MIN", "must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
