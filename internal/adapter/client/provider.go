package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"axon-core/internal/domain/entity"
)

// turn is a flattened conversation message. Tool exchanges are rendered as
// plain text turns so every provider sees the same context regardless of
// its native tool-result wire shape.
type turn struct {
	Role    string
	Content string
}

func textTurns(messages []entity.Message) []turn {
	turns := make([]turn, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleTool:
			turns = append(turns, turn{
				Role:    entity.RoleUser,
				Content: fmt.Sprintf("[Tool result for %s]: %s", msg.ToolName, msg.Content),
			})
		case entity.RoleAssistant:
			content := msg.Content
			if len(msg.ToolCalls) > 0 {
				callsJSON, _ := json.Marshal(msg.ToolCalls)
				content += "\n[Tool calls: " + string(callsJSON) + "]"
			}
			turns = append(turns, turn{Role: entity.RoleAssistant, Content: content})
		default:
			turns = append(turns, turn{Role: entity.RoleUser, Content: msg.Content})
		}
	}
	return turns
}

// price is USD per one million tokens.
type price struct {
	in  float64
	out float64
}

func (p price) estimate(tokensIn, tokensOut int) float64 {
	return float64(tokensIn)/1e6*p.in + float64(tokensOut)/1e6*p.out
}

// classify buckets a raw provider failure into the gateway error taxonomy.
// Providers surface failures in wildly different shapes, so this leans on
// status-code substrings the same way upstream SDK errors print them.
func classify(vendor string, err error) error {
	if err == nil {
		return nil
	}

	kind := entity.ErrBackendUnavailable
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "deadline") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out"):
		kind = entity.ErrBackendTimeout
	case strings.Contains(msg, "400") ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "404") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "api key"):
		kind = entity.ErrBackendRejected
	}

	return &entity.ProviderError{Provider: vendor, Kind: kind, Err: err}
}

func finishReason(toolCalls int) string {
	if toolCalls > 0 {
		return "tool_use"
	}
	return "stop"
}
