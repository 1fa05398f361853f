// Package config loads the process-wide, immutable settings struct
// consumed by both cmd/server and cmd/harness. All tunables are
// enumerated here; nothing is injected dynamically at runtime.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config is the single immutable struct the core consumes.
type Config struct {
	// Postgres connection
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	DatabaseURL      string

	// Ingestion bounds
	ChunkMinTokens     int
	ChunkMaxTokens     int
	ChunkOverlapTokens int

	// Retrieval defaults
	DefaultRetrievalN int
	DefaultRerankK    int

	// LLM / embedder identifiers
	ChatModel            string
	EmbeddingModel       string
	EmbeddingDimensions  int
	OpenAIKey            string

	// Tracing (OpenTelemetry stands in for the original system's LangSmith processor)
	OTLPEndpoint   string
	TracingProject string
	TracingEnabled bool

	// HTTP binding
	APIHost    string
	APIPort    string
	APIBaseURL string

	// Operator auth
	JWTSecret            string
	JWTExpiry            time.Duration
	OperatorSubject      string
	OperatorPasswordHash string
}

// Load reads configuration from the environment once at startup.
func Load() (Config, error) {
	cfg := Config{
		PostgresUser:       getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:   getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:         getEnv("POSTGRES_DB", "transcript_rag"),
		ChunkMinTokens:     getEnvInt("CHUNK_MIN_TOKENS", 400),
		ChunkMaxTokens:     getEnvInt("CHUNK_MAX_TOKENS", 800),
		ChunkOverlapTokens: getEnvInt("CHUNK_OVERLAP_TOKENS", 50),
		DefaultRetrievalN:  getEnvInt("DEFAULT_RETRIEVAL_N", 50),
		DefaultRerankK:     getEnvInt("DEFAULT_RERANK_K", 8),
		ChatModel:          getEnv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TracingProject:     getEnv("LANGSMITH_PROJECT", "transcript-rag"),
		TracingEnabled:     getEnvBool("LANGSMITH_TRACING", false),
		APIHost:            getEnv("API_HOST", "0.0.0.0"),
		APIPort:            getEnv("API_PORT", "8080"),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8080"),
		JWTExpiry:          24 * time.Hour,
		OperatorSubject:    getEnv("OPERATOR_SUBJECT", "operator"),
	}

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIKey == "" {
		return Config{}, fmt.Errorf("required environment variable not set: OPENAI_API_KEY")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("required environment variable not set: JWT_SECRET")
	}

	cfg.OperatorPasswordHash = os.Getenv("OPERATOR_PASSWORD_HASH")
	if cfg.OperatorPasswordHash == "" {
		return Config{}, fmt.Errorf("required environment variable not set: OPERATOR_PASSWORD_HASH")
	}

	if explicit := os.Getenv("DATABASE_URL"); explicit != "" {
		cfg.DatabaseURL = explicit
	} else {
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	}

	return cfg, nil
}

// APIAddr returns the host:port listen address derived from APIHost/APIPort.
func (c Config) APIAddr() string {
	return fmt.Sprintf("%s:%s", c.APIHost, c.APIPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env var, using fallback", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
