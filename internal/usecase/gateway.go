package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"axon-core/internal/adapter/store"
	"axon-core/internal/domain/entity"
	"axon-core/internal/domain/repository"
)

// hintRule maps a keyword appearing in free text to a provider vendor.
// Scanned in order; the first match wins, so selection is deterministic.
type hintRule struct {
	keyword string
	vendor  string
}

var hintRules = []hintRule{
	{"claude", "anthropic"},
	{"anthropic", "anthropic"},
	{"gpt", "openai"},
	{"openai", "openai"},
	{"gemini", "google"},
	{"google", "google"},
	{"ollama", "ollama"},
	{"local", "ollama"},
}

// SemanticCache groups the optional embedding-backed cache layer: a vector
// store of past responses, the embedder that feeds it, and an optional
// intent judge that confirms near matches before they are served.
type SemanticCache struct {
	Store     repository.VectorStore
	Embedder  repository.Embedder
	Judge     repository.IntentJudge
	Threshold float32
}

// Gateway composes the registered model backends behind one entry point.
// It consults the response cache before delegating, records every outcome
// into the metrics aggregator, and selects a backend by explicit request or
// by keyword heuristics over the caller's text.
type Gateway struct {
	providers    map[string]repository.ModelProvider
	order        []string
	defaultModel string
	cache        repository.ResponseCache
	semantic     *SemanticCache
	metrics      repository.MetricsRecorder
	callTimeout  time.Duration
	logger       zerolog.Logger
}

type GatewayConfig struct {
	DefaultModel string
	CallTimeout  time.Duration
}

func NewGateway(cfg GatewayConfig, cache repository.ResponseCache, metrics repository.MetricsRecorder, logger zerolog.Logger) *Gateway {
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	return &Gateway{
		providers:    make(map[string]repository.ModelProvider),
		defaultModel: cfg.DefaultModel,
		cache:        cache,
		metrics:      metrics,
		callTimeout:  timeout,
		logger:       logger,
	}
}

// Register adds a backend under its model name. The first registered
// backend becomes the default when none was configured.
func (g *Gateway) Register(p repository.ModelProvider) error {
	name := p.Name()
	if _, exists := g.providers[name]; exists {
		return fmt.Errorf("model %q already registered", name)
	}
	g.providers[name] = p
	g.order = append(g.order, name)
	if g.defaultModel == "" {
		g.defaultModel = name
	}
	g.logger.Info().Str("model", name).Str("vendor", p.Vendor()).Msg("registered backend")
	return nil
}

// WithSemanticCache attaches the optional semantic cache layer.
func (g *Gateway) WithSemanticCache(sc *SemanticCache) {
	g.semantic = sc
}

// Models lists the registered backends in registration order.
func (g *Gateway) Models() []entity.ModelInfo {
	infos := make([]entity.ModelInfo, 0, len(g.order))
	for _, name := range g.order {
		infos = append(infos, entity.ModelInfo{Name: name, Vendor: g.providers[name].Vendor()})
	}
	return infos
}

// ClearCache drops every cache entry, expired or not. Metrics are untouched.
func (g *Gateway) ClearCache() {
	if g.cache == nil {
		return
	}
	g.cache.Clear()
	g.logger.Info().Msg("response cache cleared")
}

// Route resolves a backend, consults the cache, and delegates on a miss.
// modelID pins a specific backend; when empty the hint text is scanned for
// provider keywords before falling back to the default backend.
func (g *Gateway) Route(ctx context.Context, modelID string, conversation []entity.Message, tools []entity.ToolDefinition, opts entity.GenerationOptions, hint string) (*entity.GenerationResponse, error) {
	provider, err := g.resolve(modelID, hint)
	if err != nil {
		return nil, err
	}
	model := provider.Name()

	fingerprint := store.Fingerprint(model, conversation, opts)
	if g.cache != nil {
		if cached, ok := g.cache.Get(fingerprint); ok {
			g.logger.Debug().Str("model", model).Str("key", fingerprint[:8]).Msg("cache hit")
			g.metrics.Record(model, 0, 0, 0, 0, true)
			hit := *cached
			hit.Cached = true
			return &hit, nil
		}
	}

	if resp := g.semanticLookup(ctx, model, conversation); resp != nil {
		g.metrics.Record(model, 0, 0, 0, 0, true)
		hit := *resp
		hit.Cached = true
		return &hit, nil
	}

	resp, err := g.generate(ctx, provider, conversation, tools, opts)
	if err != nil {
		if !errors.Is(err, entity.ErrCancelled) {
			g.metrics.RecordError(model)
		}
		return nil, err
	}

	if g.cache != nil {
		g.cache.Put(fingerprint, resp)
	}
	g.semanticSave(conversation, resp)
	g.metrics.Record(model, resp.TokensIn, resp.TokensOut, resp.Cost, time.Duration(resp.LatencyMs)*time.Millisecond, false)

	return resp, nil
}

// generate runs one backend call under the per-call timeout, retrying
// exactly once when the backend times out. Unavailable and rejected
// backends propagate immediately.
func (g *Gateway) generate(ctx context.Context, provider repository.ModelProvider, conversation []entity.Message, tools []entity.ToolDefinition, opts entity.GenerationOptions) (*entity.GenerationResponse, error) {
	resp, err := g.callOnce(ctx, provider, conversation, tools, opts)
	if err == nil {
		return resp, nil
	}
	if !errors.Is(err, entity.ErrBackendTimeout) {
		return nil, err
	}

	g.logger.Warn().Str("model", provider.Name()).Err(err).Msg("backend timed out, retrying once")
	return g.callOnce(ctx, provider, conversation, tools, opts)
}

func (g *Gateway) callOnce(ctx context.Context, provider repository.ModelProvider, conversation []entity.Message, tools []entity.ToolDefinition, opts entity.GenerationOptions) (*entity.GenerationResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	resp, err := provider.Generate(callCtx, conversation, tools, opts)
	if err != nil {
		// A parent-level cancellation is the caller abandoning the run, not
		// a slow backend.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrCancelled, ctx.Err())
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, entity.ErrBackendTimeout) {
			return nil, &entity.ProviderError{Provider: provider.Vendor(), Kind: entity.ErrBackendTimeout, Err: err}
		}
		return nil, err
	}
	return resp, nil
}

func (g *Gateway) resolve(modelID, hint string) (repository.ModelProvider, error) {
	if modelID != "" {
		p, ok := g.providers[modelID]
		if !ok {
			return nil, fmt.Errorf("%w: %q (available: %s)", entity.ErrUnknownModel, modelID, strings.Join(g.order, ", "))
		}
		return p, nil
	}

	if hint != "" {
		lower := strings.ToLower(hint)
		for _, rule := range hintRules {
			if !strings.Contains(lower, rule.keyword) {
				continue
			}
			if p := g.firstByVendor(rule.vendor); p != nil {
				return p, nil
			}
		}
	}

	p, ok := g.providers[g.defaultModel]
	if !ok {
		return nil, fmt.Errorf("%w: no default backend configured", entity.ErrUnknownModel)
	}
	return p, nil
}

func (g *Gateway) firstByVendor(vendor string) repository.ModelProvider {
	for _, name := range g.order {
		if g.providers[name].Vendor() == vendor {
			return g.providers[name]
		}
	}
	return nil
}

func (g *Gateway) semanticLookup(ctx context.Context, model string, conversation []entity.Message) *entity.GenerationResponse {
	// Only the opening user turn is a semantic-cache candidate; serving a
	// stored final answer mid tool loop would corrupt the run.
	if g.semantic == nil || len(conversation) != 1 {
		return nil
	}
	prompt := latestUserText(conversation)
	if prompt == "" {
		return nil
	}

	vector, err := g.semantic.Embedder.CreateEmbedding(ctx, prompt)
	if err != nil {
		g.logger.Warn().Err(err).Msg("embedding failed, skipping semantic lookup")
		return nil
	}
	resp, cachedPrompt, err := g.semantic.Store.Search(ctx, vector, g.semantic.Threshold)
	if err != nil || resp == nil {
		return nil
	}
	if g.semantic.Judge != nil && !g.semantic.Judge.IsMatch(ctx, prompt, cachedPrompt) {
		return nil
	}

	g.logger.Debug().Str("model", model).Msg("semantic cache hit")
	return resp
}

func (g *Gateway) semanticSave(conversation []entity.Message, resp *entity.GenerationResponse) {
	if g.semantic == nil || len(resp.ToolCalls) > 0 {
		return
	}
	prompt := latestUserText(conversation)
	if prompt == "" {
		return
	}

	// The request context may be gone by the time the save lands.
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		vector, err := g.semantic.Embedder.CreateEmbedding(bgCtx, prompt)
		if err != nil {
			g.logger.Warn().Err(err).Msg("embedding failed, skipping semantic save")
			return
		}
		if err := g.semantic.Store.Save(bgCtx, prompt, resp, vector); err != nil {
			g.logger.Warn().Err(err).Msg("semantic save failed")
		}
	}()
}

func latestUserText(conversation []entity.Message) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == entity.RoleUser {
			return conversation[i].Content
		}
	}
	return ""
}
