package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     int    `envconfig:"PORT" default:"8003"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DefaultModel   string        `envconfig:"DEFAULT_MODEL"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"25s"`
	MaxSteps       int           `envconfig:"MAX_STEPS" default:"8"`

	CacheEnabled bool          `envconfig:"CACHE_ENABLED" default:"true"`
	CacheMaxSize int           `envconfig:"CACHE_MAX_SIZE" default:"1000"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	// Gemini (Vertex AI)
	GoogleProject  string `envconfig:"GOOGLE_CLOUD_PROJECT"`
	GoogleLocation string `envconfig:"GOOGLE_CLOUD_LOCATION" default:"us-central1"`
	GeminiModel    string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	ClaudeModel     string `envconfig:"CLAUDE_MODEL" default:"claude-sonnet-4-20250514"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`

	OllamaURL   string `envconfig:"OLLAMA_URL"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"qwen2.5:7b"`

	// Redis token budget. Zero disables the limiter.
	RedisAddr      string `envconfig:"REDIS_ADDR"`
	UserTokenLimit int    `envconfig:"USER_TOKEN_LIMIT" default:"0"`

	// Qdrant semantic cache. Empty host disables it.
	QdrantHost        string        `envconfig:"QDRANT_HOST"`
	QdrantPort        int           `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantCollection  string        `envconfig:"QDRANT_COLLECTION" default:"axon_responses"`
	EmbeddingModel    string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	SemanticThreshold float32       `envconfig:"SEMANTIC_THRESHOLD" default:"0.85"`
	SemanticTTL       time.Duration `envconfig:"SEMANTIC_TTL" default:"24h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// SemanticCacheEnabled reports whether the Qdrant layer should be wired.
func (c *Config) SemanticCacheEnabled() bool {
	return c.QdrantHost != "" && c.GoogleProject != ""
}
