package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	APIToken        string
	ChunkSize       int
	Concurrency     int
	MaxRetries      int
	BackoffBaseMs   int
}

func Load() Config {
	return Config{
		Port:            envInt("DIGEST_PORT", 8760),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("DIGEST_MODEL", "claude-sonnet-4-20250514"),
		APIToken:        envStr("DIGEST_API_TOKEN", ""),
		ChunkSize:       envInt("DIGEST_CHUNK_SIZE", 20),
		Concurrency:     envInt("DIGEST_CONCURRENCY", 3),
		MaxRetries:      envInt("DIGEST_MAX_RETRIES", 2),
		BackoffBaseMs:   envInt("DIGEST_BACKOFF_BASE_MS", 1000),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
