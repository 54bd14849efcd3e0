package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"axon-core/internal/domain/entity"
)

func builtinRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	return r
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := builtinRegistry(t)
	err := r.Register("add", "again", numberPairSchema(), func(context.Context, map[string]any) (any, error) {
		return nil, nil
	})
	require.Error(t, err)
}

func TestRegisterRejectsMalformedSchema(t *testing.T) {
	r := NewRegistry()
	err := r.Register("bad", "broken schema", map[string]any{
		"type": 42,
	}, func(context.Context, map[string]any) (any, error) { return nil, nil })
	require.Error(t, err)
}

func TestListOrder(t *testing.T) {
	r := builtinRegistry(t)
	defs := r.List()

	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	require.Equal(t, []string{"add", "subtract", "multiply", "divide", "word_count", "reverse_text", "to_uppercase"}, names)
}

func TestInvokeUnknownTool(t *testing.T) {
	r := builtinRegistry(t)
	_, err := r.Invoke(context.Background(), "launch_rocket", json.RawMessage(`{}`))
	require.ErrorIs(t, err, entity.ErrUnknownTool)
}

func TestInvokeMissingRequiredArgument(t *testing.T) {
	r := builtinRegistry(t)
	_, err := r.Invoke(context.Background(), "add", json.RawMessage(`{"a": 5}`))
	require.ErrorIs(t, err, entity.ErrInvalidArguments)
}

func TestInvokeWrongArgumentType(t *testing.T) {
	r := builtinRegistry(t)
	_, err := r.Invoke(context.Background(), "add", json.RawMessage(`{"a": "five", "b": 3}`))
	require.ErrorIs(t, err, entity.ErrInvalidArguments)
}

func TestInvokeUnexpectedArgument(t *testing.T) {
	r := builtinRegistry(t)
	_, err := r.Invoke(context.Background(), "add", json.RawMessage(`{"a": 5, "b": 3, "c": 1}`))
	require.ErrorIs(t, err, entity.ErrInvalidArguments)
}

func TestInvokeMalformedJSON(t *testing.T) {
	r := builtinRegistry(t)
	_, err := r.Invoke(context.Background(), "add", json.RawMessage(`{"a": `))
	require.ErrorIs(t, err, entity.ErrInvalidArguments)
}

func TestInvokeExecutionFailure(t *testing.T) {
	r := builtinRegistry(t)
	_, err := r.Invoke(context.Background(), "divide", json.RawMessage(`{"a": 1, "b": 0}`))
	require.ErrorIs(t, err, entity.ErrExecutionFailure)
	require.NotErrorIs(t, err, entity.ErrInvalidArguments)
}

func TestInvokeHandlerErrorIsWrapped(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Register("failing", "always fails", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) { return nil, boom }))

	_, err := r.Invoke(context.Background(), "failing", nil)
	require.ErrorIs(t, err, entity.ErrExecutionFailure)
	require.Contains(t, err.Error(), "boom")
}

func TestBuiltinArithmetic(t *testing.T) {
	r := builtinRegistry(t)
	ctx := context.Background()

	got, err := r.Invoke(ctx, "add", json.RawMessage(`{"a": 5, "b": 3}`))
	require.NoError(t, err)
	require.Equal(t, float64(8), got)

	got, err = r.Invoke(ctx, "subtract", json.RawMessage(`{"a": 5, "b": 3}`))
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	got, err = r.Invoke(ctx, "multiply", json.RawMessage(`{"a": 4, "b": 2.5}`))
	require.NoError(t, err)
	require.Equal(t, float64(10), got)

	got, err = r.Invoke(ctx, "divide", json.RawMessage(`{"a": 9, "b": 2}`))
	require.NoError(t, err)
	require.Equal(t, 4.5, got)
}

func TestBuiltinTextTools(t *testing.T) {
	r := builtinRegistry(t)
	ctx := context.Background()

	got, err := r.Invoke(ctx, "word_count", json.RawMessage(`{"text": "one two  three"}`))
	require.NoError(t, err)
	require.Equal(t, 3, got)

	got, err = r.Invoke(ctx, "reverse_text", json.RawMessage(`{"text": "abc"}`))
	require.NoError(t, err)
	require.Equal(t, "cba", got)

	got, err = r.Invoke(ctx, "to_uppercase", json.RawMessage(`{"text": "shout"}`))
	require.NoError(t, err)
	require.Equal(t, "SHOUT", got)
}

func TestFormatResult(t *testing.T) {
	require.Equal(t, "8", FormatResult(float64(8)))
	require.Equal(t, "4.5", FormatResult(4.5))
	require.Equal(t, "hello", FormatResult("hello"))
	require.Equal(t, "3", FormatResult(3))
}
