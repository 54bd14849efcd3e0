package repository

import (
	"context"
	"time"

	"axon-core/internal/domain/entity"
)

// ModelProvider is one concrete language-model backend. Adapters map the
// conversation into the provider's call shape and the provider's raw output
// (including any tool-invocation intent) back into a GenerationResponse.
type ModelProvider interface {
	Name() string
	Vendor() string
	Generate(ctx context.Context, messages []entity.Message, tools []entity.ToolDefinition, opts entity.GenerationOptions) (*entity.GenerationResponse, error)
}

// ResponseCache maps a request fingerprint to a previously computed
// response, with per-entry expiry.
type ResponseCache interface {
	Get(fingerprint string) (*entity.GenerationResponse, bool)
	Put(fingerprint string, resp *entity.GenerationResponse)
	Clear()
}

// MetricsRecorder accumulates usage counters across all routed requests.
type MetricsRecorder interface {
	Record(model string, tokensIn, tokensOut int, cost float64, latency time.Duration, cacheHit bool)
	RecordError(model string)
	Snapshot() entity.MetricsSnapshot
	Clear()
}

// VectorStore backs the optional semantic cache. Search also returns the
// prompt the stored response was produced for, so an intent judge can
// double-check near matches.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, threshold float32) (*entity.GenerationResponse, string, error)
	Save(ctx context.Context, prompt string, resp *entity.GenerationResponse, vector []float32) error
}

// IntentJudge verifies that two prompts ask for the same thing before a
// semantic cache hit is served.
type IntentJudge interface {
	IsMatch(ctx context.Context, userPrompt, cachedPrompt string) bool
}

// TokenLimiter enforces a per-caller token budget.
type TokenLimiter interface {
	CheckLimit(ctx context.Context, callerID string) (bool, error)
	Increment(ctx context.Context, callerID string, tokens int) error
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}
