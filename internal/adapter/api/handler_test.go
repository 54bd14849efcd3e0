package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"axon-core/internal/adapter/store"
	"axon-core/internal/domain/entity"
	"axon-core/internal/metrics"
	"axon-core/internal/tool"
	"axon-core/internal/usecase"
)

// scriptedProvider replays responses in order, repeating the last one.
type scriptedProvider struct {
	name      string
	vendor    string
	responses []*entity.GenerationResponse
	calls     int
}

func (p *scriptedProvider) Name() string   { return p.name }
func (p *scriptedProvider) Vendor() string { return p.vendor }

func (p *scriptedProvider) Generate(_ context.Context, _ []entity.Message, _ []entity.ToolDefinition, _ entity.GenerationOptions) (*entity.GenerationResponse, error) {
	i := p.calls
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	p.calls++
	resp := *p.responses[i]
	resp.Model = p.name
	return &resp, nil
}

func newTestApp(t *testing.T, provider *scriptedProvider) *fiber.App {
	t.Helper()

	aggregator := metrics.NewAggregator()
	gateway := usecase.NewGateway(usecase.GatewayConfig{CallTimeout: time.Second},
		store.NewMemoryCache(100, time.Hour), aggregator, zerolog.Nop())
	require.NoError(t, gateway.Register(provider))

	registry := tool.NewRegistry()
	require.NoError(t, tool.RegisterBuiltins(registry))

	engine := usecase.NewEngine(gateway, registry, nil, 8, zerolog.Nop())
	handler := NewChatHandler(engine, gateway, registry, aggregator)

	app := fiber.New()
	SetupRouter(app, handler)
	return app
}

func textProvider(content string) *scriptedProvider {
	return &scriptedProvider{
		name:   "gemini-2.5-flash",
		vendor: "google",
		responses: []*entity.GenerationResponse{{
			Content: content, TokensIn: 10, TokensOut: 5, FinishReason: "stop",
		}},
	}
}

func TestHandleChat(t *testing.T) {
	app := newTestApp(t, textProvider("Paris"))

	body := bytes.NewBufferString(`{"input": "capital of France?"}`)
	req := httptest.NewRequest("POST", "/v1/chat", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "false", resp.Header.Get("X-Axon-Cache-Hit"))

	var result entity.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Equal(t, "Paris", result.Content)
	require.Equal(t, "gemini-2.5-flash", result.Model)
	require.NotEmpty(t, result.RunID)
	require.Len(t, result.Steps, 3)
}

func TestHandleChatCacheHitHeader(t *testing.T) {
	app := newTestApp(t, textProvider("Paris"))

	for i, want := range []string{"false", "true"} {
		body := bytes.NewBufferString(`{"input": "capital of France?"}`)
		req := httptest.NewRequest("POST", "/v1/chat", body)
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, want, resp.Header.Get("X-Axon-Cache-Hit"), "request %d", i)
	}
}

func TestHandleChatMissingInput(t *testing.T) {
	app := newTestApp(t, textProvider("x"))

	req := httptest.NewRequest("POST", "/v1/chat", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleChatUnknownModel(t *testing.T) {
	app := newTestApp(t, textProvider("x"))

	req := httptest.NewRequest("POST", "/v1/chat",
		bytes.NewBufferString(`{"input": "hi", "model": "gpt-99"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "UnknownModel", body["error"])
}

func TestHandleChatStream(t *testing.T) {
	app := newTestApp(t, textProvider("Paris"))

	req := httptest.NewRequest("POST", "/v1/chat/stream",
		bytes.NewBufferString(`{"input": "capital of France?"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var lines []map[string]any
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}

	// Three steps plus the terminal result line.
	require.Len(t, lines, 4)
	require.Equal(t, "start", lines[0]["type"])
	require.Equal(t, "model-call", lines[1]["type"])
	require.Equal(t, "final", lines[2]["type"])
	require.Equal(t, "Paris", lines[3]["content"])
}

func TestHandleModels(t *testing.T) {
	app := newTestApp(t, textProvider("x"))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/models", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Models []entity.ModelInfo `json:"models"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Models, 1)
	require.Equal(t, "gemini-2.5-flash", body.Models[0].Name)
	require.Equal(t, "google", body.Models[0].Vendor)
}

func TestHandleTools(t *testing.T) {
	app := newTestApp(t, textProvider("x"))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/tools", nil), -1)
	require.NoError(t, err)

	var body struct {
		Tools []entity.ToolDefinition `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tools, 7)
	require.Equal(t, "add", body.Tools[0].Name)
}

func TestHandleMetricsLifecycle(t *testing.T) {
	app := newTestApp(t, textProvider("Paris"))

	chatReq := httptest.NewRequest("POST", "/v1/chat", bytes.NewBufferString(`{"input": "hi"}`))
	chatReq.Header.Set("Content-Type", "application/json")
	_, err := app.Test(chatReq, -1)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/metrics", nil), -1)
	require.NoError(t, err)
	var snap entity.MetricsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.EqualValues(t, 1, snap.TotalRequests)
	require.EqualValues(t, 15, snap.TotalTokens)

	resp, err = app.Test(httptest.NewRequest("POST", "/v1/metrics/reset", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/metrics", nil), -1)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Zero(t, snap.TotalRequests)
}

func TestHandleCacheClear(t *testing.T) {
	provider := textProvider("Paris")
	app := newTestApp(t, provider)

	send := func() {
		req := httptest.NewRequest("POST", "/v1/chat", bytes.NewBufferString(`{"input": "hi"}`))
		req.Header.Set("Content-Type", "application/json")
		_, err := app.Test(req, -1)
		require.NoError(t, err)
	}

	send()
	send()
	require.Equal(t, 1, provider.calls, "repeat should be served from cache")

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/cache", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	send()
	require.Equal(t, 2, provider.calls)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, textProvider("x"))

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "healthy")
}
