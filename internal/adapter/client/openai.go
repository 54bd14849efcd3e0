package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"axon-core/internal/domain/entity"
)

var openaiPrices = map[string]price{
	"gpt-4o":      {in: 2.50, out: 10.00},
	"gpt-4o-mini": {in: 0.15, out: 0.60},
}

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *OpenAIClient) Name() string {
	return c.model
}

func (c *OpenAIClient) Vendor() string {
	return "openai"
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []entity.Message, tools []entity.ToolDefinition, opts entity.GenerationOptions) (*entity.GenerationResponse, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, t := range textTurns(messages) {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    t.Role,
			Content: t.Content,
		})
	}

	encodedTools, err := encodeTools(tools)
	if err != nil {
		return nil, err
	}

	request := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Tools:       encodedTools,
	}

	start := time.Now()
	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, classify(c.Vendor(), err)
	}
	if len(response.Choices) == 0 {
		return nil, classify(c.Vendor(), fmt.Errorf("empty choice list"))
	}

	choice := response.Choices[0]
	resp := &entity.GenerationResponse{
		Content:      choice.Message.Content,
		Model:        c.model,
		TokensIn:     response.Usage.PromptTokens,
		TokensOut:    response.Usage.CompletionTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
		FinishReason: string(choice.FinishReason),
	}

	for _, call := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, entity.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(call.Function.Arguments),
		})
	}

	resp.Cost = openaiPrices[c.model].estimate(resp.TokensIn, resp.TokensOut)
	return resp, nil
}

func encodeTools(defs []entity.ToolDefinition) ([]openai.Tool, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		params, err := json.Marshal(def.Schema)
		if err != nil {
			return nil, fmt.Errorf("marshal tool %s schema: %w", def.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	return tools, nil
}
