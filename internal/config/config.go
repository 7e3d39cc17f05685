package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Chunking policy
	ChunkMaxTokens     int `envconfig:"CHUNK_MAX_TOKENS" default:"480"`
	ChunkOverlapTokens int `envconfig:"CHUNK_OVERLAP_TOKENS" default:"60"`

	// Retrieval and assembly budgets
	RetrievalBudget int `envconfig:"RETRIEVAL_BUDGET" default:"8"`
	ContextTokens   int `envconfig:"CONTEXT_TOKENS" default:"2400"`
	HistoryTokens   int `envconfig:"HISTORY_TOKENS" default:"600"`

	// PinnedFallback answers from always-include lore alone when the
	// embedding provider is down
	PinnedFallback bool `envconfig:"PINNED_FALLBACK" default:"false"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`

	// Embedding rate limit, requests per second
	EmbedRateLimit float64 `envconfig:"EMBED_RATE_LIMIT" default:"5"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("STORYAI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
