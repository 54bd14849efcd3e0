package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

func numberPairSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required":             []any{"a", "b"},
		"additionalProperties": false,
	}
}

func textSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required":             []any{"text"},
		"additionalProperties": false,
	}
}

// RegisterBuiltins registers the arithmetic and text helpers the engine
// ships with. Handlers are pure and fast; they run synchronously.
func RegisterBuiltins(r *Registry) error {
	binary := func(name, desc string, f func(a, b float64) (float64, error)) error {
		return r.Register(name, desc, numberPairSchema(), func(_ context.Context, args map[string]any) (any, error) {
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			return f(a, b)
		})
	}

	if err := binary("add", "Add two numbers and return their sum.", func(a, b float64) (float64, error) {
		return a + b, nil
	}); err != nil {
		return err
	}
	if err := binary("subtract", "Subtract b from a.", func(a, b float64) (float64, error) {
		return a - b, nil
	}); err != nil {
		return err
	}
	if err := binary("multiply", "Multiply two numbers.", func(a, b float64) (float64, error) {
		return a * b, nil
	}); err != nil {
		return err
	}
	if err := binary("divide", "Divide a by b.", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	}); err != nil {
		return err
	}

	if err := r.Register("word_count", "Count the words in a piece of text.", textSchema(), func(_ context.Context, args map[string]any) (any, error) {
		text, _ := args["text"].(string)
		return len(strings.Fields(text)), nil
	}); err != nil {
		return err
	}
	if err := r.Register("reverse_text", "Reverse a piece of text.", textSchema(), func(_ context.Context, args map[string]any) (any, error) {
		text, _ := args["text"].(string)
		runes := []rune(text)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes), nil
	}); err != nil {
		return err
	}
	if err := r.Register("to_uppercase", "Convert text to upper case.", textSchema(), func(_ context.Context, args map[string]any) (any, error) {
		text, _ := args["text"].(string)
		return strings.ToUpper(text), nil
	}); err != nil {
		return err
	}

	return nil
}

// FormatResult renders a tool result the way it is appended to the
// conversation as a tool message.
func FormatResult(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatNumber(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
