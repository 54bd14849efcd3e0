package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"axon-core/internal/adapter/api"
	"axon-core/internal/adapter/client"
	"axon-core/internal/adapter/store"
	"axon-core/internal/config"
	"axon-core/internal/domain/repository"
	"axon-core/internal/metrics"
	"axon-core/internal/tool"
	"axon-core/internal/usecase"
)

func main() {
	if err := godotenv.Load(".env.dev"); err != nil {
		fmt.Fprintln(os.Stderr, "no .env.dev file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx := context.Background()

	// Caching and metrics
	var cache repository.ResponseCache
	if cfg.CacheEnabled {
		cache = store.NewMemoryCache(cfg.CacheMaxSize, cfg.CacheTTL)
	}
	aggregator := metrics.NewAggregator()

	// Model Routing Layer
	gateway := usecase.NewGateway(usecase.GatewayConfig{
		DefaultModel: cfg.DefaultModel,
		CallTimeout:  cfg.RequestTimeout,
	}, cache, aggregator, logger)

	if cfg.GoogleProject != "" {
		gemini, err := client.NewGeminiClient(ctx, cfg.GoogleProject, cfg.GoogleLocation, cfg.GeminiModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init gemini client")
		}
		mustRegister(logger, gateway, gemini)
	}
	if cfg.AnthropicAPIKey != "" {
		mustRegister(logger, gateway, client.NewClaudeClient(cfg.AnthropicAPIKey, cfg.ClaudeModel))
	}
	if cfg.OpenAIAPIKey != "" {
		mustRegister(logger, gateway, client.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}
	if cfg.OllamaURL != "" {
		ollama := client.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel)
		if !ollama.IsAvailable(ctx) {
			logger.Warn().Str("url", cfg.OllamaURL).Msg("ollama not reachable, registering anyway")
		}
		mustRegister(logger, gateway, ollama)
	}
	if len(gateway.Models()) == 0 {
		logger.Fatal().Msg("no model backends configured, set at least one provider credential")
	}

	// Qdrant for Semantic Cache
	if cfg.SemanticCacheEnabled() {
		qClient, err := qdrant.NewClient(&qdrant.Config{
			Host: cfg.QdrantHost,
			Port: cfg.QdrantPort,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to qdrant")
		}

		embedder, err := client.NewEmbedder(ctx, cfg.GoogleProject, cfg.GoogleLocation, cfg.EmbeddingModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init embedder")
		}
		evaluator := client.NewGeminiEvaluator(embedder.Client(), cfg.GeminiModel)

		vectorStore := store.NewQdrantStore(qClient, cfg.QdrantCollection, cfg.SemanticTTL, logger)
		if err := vectorStore.InitCollection(ctx, 768); err != nil {
			logger.Fatal().Err(err).Msg("failed to init qdrant collection")
		}

		gateway.WithSemanticCache(&usecase.SemanticCache{
			Store:     vectorStore,
			Embedder:  embedder,
			Judge:     evaluator,
			Threshold: cfg.SemanticThreshold,
		})

		go func() {
			warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := embedder.CreateEmbedding(warmCtx, "warmup"); err != nil {
				logger.Warn().Err(err).Msg("embedder warm-up failed")
				return
			}
			logger.Info().Msg("semantic cache pre-warm complete")
		}()
	}

	// Redis for caller token budgets
	var limiter repository.TokenLimiter
	if cfg.RedisAddr != "" && cfg.UserTokenLimit > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = store.NewRedisLimiter(rdb, cfg.UserTokenLimit)
	}

	// Tooling
	registry := tool.NewRegistry()
	if err := tool.RegisterBuiltins(registry); err != nil {
		logger.Fatal().Err(err).Msg("failed to register builtin tools")
	}

	// Orchestration Layer
	engine := usecase.NewEngine(gateway, registry, limiter, cfg.MaxSteps, logger)

	// Delivery Layer
	app := fiber.New(fiber.Config{
		AppName: "Axon Gateway",
	})
	handler := api.NewChatHandler(engine, gateway, registry, aggregator)
	api.SetupRouter(app, handler)

	logger.Info().Int("port", cfg.Port).Int("models", len(gateway.Models())).Msg("axon gateway running")
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func mustRegister(logger zerolog.Logger, g *usecase.Gateway, p repository.ModelProvider) {
	if err := g.Register(p); err != nil {
		logger.Fatal().Err(err).Msg("failed to register model backend")
	}
	logger.Info().Str("model", p.Name()).Str("vendor", p.Vendor()).Msg("model backend registered")
}
