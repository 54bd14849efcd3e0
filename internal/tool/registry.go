package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"axon-core/internal/domain/entity"
)

// Handler executes one tool call. Arguments arrive already validated
// against the tool's schema.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type registeredTool struct {
	def     entity.ToolDefinition
	schema  *jsonschema.Schema
	handler Handler
}

// Registry holds the set of callable tools. It is immutable after the
// registration phase and therefore safe for concurrent invocation.
type Registry struct {
	tools map[string]*registeredTool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registeredTool)}
}

// Register adds a tool under a unique name. The schema must be a JSON
// schema object; it is compiled eagerly so malformed schemas fail at
// startup rather than at invoke time.
func (r *Registry) Register(name, description string, schema map[string]any, h Handler) error {
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	compiled, err := compileSchema(name, schema)
	if err != nil {
		return fmt.Errorf("compile schema for tool %q: %w", name, err)
	}

	r.tools[name] = &registeredTool{
		def: entity.ToolDefinition{
			Name:        name,
			Description: description,
			Schema:      schema,
		},
		schema:  compiled,
		handler: h,
	}
	r.order = append(r.order, name)
	return nil
}

// List returns the tool definitions in registration order.
func (r *Registry) List() []entity.ToolDefinition {
	defs := make([]entity.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

// Invoke validates the raw arguments against the tool's schema and runs it.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownTool, name)
	}

	decoded := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &decoded); err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidArguments, err)
		}
	}

	// jsonschema validates decoded JSON values, so re-decode through any to
	// normalize numbers to float64.
	var val any = decoded
	if err := t.schema.Validate(val); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidArguments, err)
	}

	result, err := t.handler(ctx, decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrExecutionFailure, name, err)
	}
	return result, nil
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	// Round-trip through JSON so the compiler sees plain decoded values.
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	url := name + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}
