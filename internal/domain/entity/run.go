package entity

import "time"

// Step types emitted by the orchestration engine, in the exact order the
// state transitions occur.
const (
	StepStart      = "start"
	StepModelCall  = "model-call"
	StepToolCall   = "tool-call"
	StepToolResult = "tool-result"
	StepFinal      = "final"
	StepError      = "error"
)

// RunRequest is one caller request entering the orchestration engine.
type RunRequest struct {
	CallerID string `json:"caller_id,omitempty"`
	Input    string `json:"input"`

	// Model optionally pins a registered backend; when empty the gateway
	// selects one from the input text or falls back to the default.
	Model string `json:"model,omitempty"`

	Options GenerationOptions `json:"options"`
}

// Step is one recorded state transition of a run. The same value is both
// appended to the run trace and emitted to streaming sinks.
type Step struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
}

// RunResult is what a completed run returns: the final assistant text plus
// the ordered transition trace. On failure the engine still hands back the
// partial trace accumulated so far alongside the error.
type RunResult struct {
	RunID   string `json:"run_id"`
	Content string `json:"content"`
	Model   string `json:"model"`
	Steps   []Step `json:"steps"`
}
