// Package config loads server configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds server configuration.
type Config struct {
	Port     string
	LogLevel string

	// PublicBaseURL is the externally reachable base for /media/ links.
	PublicBaseURL string

	// LedgerBackend selects the coin store: sqlite (default), redis, memory.
	LedgerBackend string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string

	// BlobBackend selects media storage: fs (default), s3, gcs.
	BlobBackend string
	DataDir     string

	// LinkSigningSecret signs /media/ links for the fs backend.
	LinkSigningSecret string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// JWTSecret validates bearer tokens. Empty fails closed.
	JWTSecret string

	CORSOrigins []string

	// RateLimitRPM of 0 disables rate limiting.
	RateLimitRPM   int
	RateLimitBurst int
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Port:              envOr("PORT", "8080"),
		LogLevel:          envOr("LOG_LEVEL", "INFO"),
		PublicBaseURL:     envOr("PUBLIC_BASE_URL", "http://localhost:8080"),
		LedgerBackend:     envOr("LEDGER_BACKEND", "sqlite"),
		SQLitePath:        os.Getenv("LEDGER_SQLITE_PATH"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		BlobBackend:       envOr("BLOB_BACKEND", "fs"),
		DataDir:           envOr("DATA_DIR", "./data"),
		LinkSigningSecret: os.Getenv("LINK_SIGNING_SECRET"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOr("OPENAI_MODEL", "gpt-image-1"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RateLimitRPM:      envInt("RATE_LIMIT_RPM", 0),
		RateLimitBurst:    envInt("RATE_LIMIT_BURST", 10),
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
