package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"axon-core/internal/domain/entity"
)

var claudePrices = map[string]price{
	"claude-sonnet-4-20250514": {in: 3.00, out: 15.00},
	"claude-haiku-3-5":         {in: 0.80, out: 4.00},
}

type ClaudeClient struct {
	client anthropic.Client
	model  string
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	return &ClaudeClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *ClaudeClient) Name() string {
	return c.model
}

func (c *ClaudeClient) Vendor() string {
	return "anthropic"
}

func (c *ClaudeClient) Generate(ctx context.Context, messages []entity.Message, tools []entity.ToolDefinition, opts entity.GenerationOptions) (*entity.GenerationResponse, error) {
	anthropicMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, t := range textTurns(messages) {
		role := anthropic.MessageParamRoleUser
		if t.Role == entity.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
			Role: role,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(t.Content),
			},
		})
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  anthropicMessages,
	}
	if opts.Temperature != 0 {
		params.Temperature = anthropic.Float(float64(opts.Temperature))
	}

	if len(tools) > 0 {
		toolUnions := make([]anthropic.ToolUnionParam, 0, len(tools))
		for _, def := range tools {
			properties := def.Schema["properties"]
			required := requiredFields(def.Schema)
			toolUnions = append(toolUnions, anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        def.Name,
					Description: anthropic.String(def.Description),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: properties,
						Required:   required,
					},
				},
			})
		}
		params.Tools = toolUnions
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(c.Vendor(), err)
	}

	resp := &entity.GenerationResponse{
		Model:        c.model,
		TokensIn:     int(msg.Usage.InputTokens),
		TokensOut:    int(msg.Usage.OutputTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
		FinishReason: string(msg.StopReason),
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			inputJSON, _ := json.Marshal(block.Input)
			resp.ToolCalls = append(resp.ToolCalls, entity.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: inputJSON,
			})
		}
	}

	resp.Cost = claudePrices[c.model].estimate(resp.TokensIn, resp.TokensOut)
	return resp, nil
}

func requiredFields(schema map[string]any) []string {
	raw, ok := schema["required"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if name, ok := r.(string); ok {
			out = append(out, name)
		}
	}
	return out
}
