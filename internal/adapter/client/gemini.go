package client

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"axon-core/internal/domain/entity"
)

var geminiPrices = map[string]price{
	"gemini-2.5-flash": {in: 0.30, out: 2.50},
	"gemini-1.5-flash": {in: 0.075, out: 0.30},
	"gemini-2.5-pro":   {in: 1.25, out: 10.00},
}

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, projectID, location, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client, model: model}, nil
}

func NewGeminiClientFromClient(c *genai.Client, model string) *GeminiClient {
	return &GeminiClient{
		client: c,
		model:  model,
	}
}

func (g *GeminiClient) Name() string {
	return g.model
}

func (g *GeminiClient) Vendor() string {
	return "google"
}

func (g *GeminiClient) Generate(ctx context.Context, messages []entity.Message, tools []entity.ToolDefinition, opts entity.GenerationOptions) (*entity.GenerationResponse, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, t := range textTurns(messages) {
		role := genai.RoleUser
		if t.Role == entity.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  string(role),
			Parts: []*genai.Part{{Text: t.Content}},
		})
	}

	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature != 0 {
		cfg.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.MaxTokens != 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, def := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  toGenaiSchema(def.Schema),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, classify(g.Vendor(), err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, classify(g.Vendor(), errors.New("empty candidate list"))
	}

	resp := &entity.GenerationResponse{
		Model:     g.model,
		LatencyMs: time.Since(start).Milliseconds(),
	}

	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			resp.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			resp.ToolCalls = append(resp.ToolCalls, entity.ToolCall{
				ID:        uuid.NewString(),
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}

	if result.UsageMetadata != nil {
		resp.TokensIn = int(result.UsageMetadata.PromptTokenCount)
		resp.TokensOut = int(result.UsageMetadata.CandidatesTokenCount)
	}
	resp.Cost = geminiPrices[g.model].estimate(resp.TokensIn, resp.TokensOut)
	resp.FinishReason = finishReason(len(resp.ToolCalls))

	return resp, nil
}

func toGenaiSchema(schema map[string]any) *genai.Schema {
	out := &genai.Schema{Type: genai.TypeObject}

	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			prop, _ := raw.(map[string]any)
			ps := &genai.Schema{}
			if t, ok := prop["type"].(string); ok {
				ps.Type = genaiType(t)
			}
			if d, ok := prop["description"].(string); ok {
				ps.Description = d
			}
			out.Properties[name] = ps
		}
	}
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				out.Required = append(out.Required, name)
			}
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}
