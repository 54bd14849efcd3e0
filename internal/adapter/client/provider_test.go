package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"axon-core/internal/domain/entity"
)

func TestTextTurnsFlattensToolExchange(t *testing.T) {
	messages := []entity.Message{
		{Role: entity.RoleUser, Content: "add 5 and 3"},
		{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{
			ID: "call-1", Name: "add", Arguments: json.RawMessage(`{"a":5,"b":3}`),
		}}},
		{Role: entity.RoleTool, ToolName: "add", Content: "8"},
	}

	turns := textTurns(messages)
	require.Len(t, turns, 3)

	require.Equal(t, entity.RoleUser, turns[0].Role)
	require.Equal(t, "add 5 and 3", turns[0].Content)

	require.Equal(t, entity.RoleAssistant, turns[1].Role)
	require.Contains(t, turns[1].Content, `"add"`)

	require.Equal(t, entity.RoleUser, turns[2].Role)
	require.Equal(t, "[Tool result for add]: 8", turns[2].Content)
}

func TestClassifyTimeout(t *testing.T) {
	err := classify("google", context.DeadlineExceeded)
	require.ErrorIs(t, err, entity.ErrBackendTimeout)

	err = classify("ollama", errors.New("request timed out after 25s"))
	require.ErrorIs(t, err, entity.ErrBackendTimeout)
}

func TestClassifyRejected(t *testing.T) {
	for _, msg := range []string{
		"googleapi: Error 401: unauthorized",
		"status 429: rate limited",
		"invalid request: missing field",
		"api key not valid",
	} {
		err := classify("google", errors.New(msg))
		require.ErrorIs(t, err, entity.ErrBackendRejected, msg)
	}
}

func TestClassifyUnavailableDefault(t *testing.T) {
	err := classify("anthropic", errors.New("connection refused"))
	require.ErrorIs(t, err, entity.ErrBackendUnavailable)

	var pe *entity.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "anthropic", pe.Provider)
}

func TestClassifyNil(t *testing.T) {
	require.NoError(t, classify("google", nil))
}

func TestPriceEstimate(t *testing.T) {
	p := price{in: 3, out: 15}
	require.InDelta(t, 0.0, p.estimate(0, 0), 1e-12)
	require.InDelta(t, 3e-6+15e-6, p.estimate(1, 1), 1e-12)
	require.InDelta(t, 0.3+0.75, p.estimate(100_000, 50_000), 1e-9)
}
