package entity

import "encoding/json"

// Message roles. A conversation is an append-only []Message owned by a
// single orchestration run.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ToolCalls is populated on assistant messages when the model requested
	// tool invocations instead of (or alongside) final text.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolName is set on tool messages to name the tool that produced them.
	ToolName string `json:"tool_name,omitempty"`
}

// ToolCall is a tool invocation requested by the model. Arguments carry the
// raw JSON object the model produced; they are decoded and validated by the
// tool registry at invoke time.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a registered tool the way it is advertised to
// model backends: name, human description and a JSON schema for its input.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}
