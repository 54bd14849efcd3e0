package entity

// GenerationOptions are the caller-tunable knobs forwarded to a backend.
// Zero values mean "use the provider default".
type GenerationOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// GenerationResponse is the uniform result shape every backend adapter maps
// its provider output into. It is immutable once returned.
type GenerationResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Model        string     `json:"model"`
	TokensIn     int        `json:"tokens_in"`
	TokensOut    int        `json:"tokens_out"`
	Cost         float64    `json:"cost"`
	LatencyMs    int64      `json:"latency_ms"`
	Cached       bool       `json:"cached"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// TotalTokens is the combined prompt and completion token count.
func (r *GenerationResponse) TotalTokens() int {
	return r.TokensIn + r.TokensOut
}

// ModelInfo describes a registered backend for the listing endpoint.
type ModelInfo struct {
	Name   string `json:"name"`
	Vendor string `json:"vendor"`
}
