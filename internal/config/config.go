// Package config loads environment-based configuration for the generator service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service
type Config struct {
	// Server
	ListenAddr  string
	Environment string

	// LLM provider keys
	AnthropicKey string
	OpenAIKey    string

	// Result cache
	CacheCapacity int
	RedisURL      string
	RedisTTL      time.Duration

	// Execution host (sandbox provisioning service)
	ExecutionHostURL   string
	ExecutionHostToken string
	ReadyPollAttempts  int
	ReadyPollInterval  time.Duration
}

// Load reads configuration from the environment. A .env file is honored in
// development but its absence is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		AnthropicKey:       os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		CacheCapacity:      getEnvInt("RESULT_CACHE_CAPACITY", 50),
		RedisURL:           os.Getenv("REDIS_URL"),
		RedisTTL:           getEnvDuration("REDIS_RESULT_TTL", 30*time.Minute),
		ExecutionHostURL:   getEnv("EXECUTION_HOST_URL", "http://localhost:49982"),
		ExecutionHostToken: os.Getenv("EXECUTION_HOST_TOKEN"),
		ReadyPollAttempts:  getEnvInt("READY_POLL_ATTEMPTS", 20),
		ReadyPollInterval:  getEnvDuration("READY_POLL_INTERVAL", 500*time.Millisecond),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
