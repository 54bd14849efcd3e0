package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"axon-core/internal/domain/entity"
	"axon-core/internal/domain/repository"
	"axon-core/internal/tool"
)

// EventSink receives each run step in the exact order transitions occur.
type EventSink func(entity.Step)

// Engine drives the request/tool loop: it sends the conversation to the
// gateway, executes any requested tools, appends their results, and repeats
// until the model returns a final answer or the step bound is hit. One
// Engine serves many concurrent runs; per-run state lives on the stack of
// RunWithEvents.
type Engine struct {
	gateway  *Gateway
	tools    *tool.Registry
	limiter  repository.TokenLimiter // optional
	maxSteps int
	logger   zerolog.Logger
}

func NewEngine(gateway *Gateway, tools *tool.Registry, limiter repository.TokenLimiter, maxSteps int, logger zerolog.Logger) *Engine {
	if maxSteps <= 0 {
		maxSteps = 8
	}
	return &Engine{
		gateway:  gateway,
		tools:    tools,
		limiter:  limiter,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// Run executes one orchestration run to completion.
func (e *Engine) Run(ctx context.Context, req entity.RunRequest) (*entity.RunResult, error) {
	return e.RunWithEvents(ctx, req, nil)
}

// RunWithEvents executes one run, emitting every step to sink as it is
// committed. On failure the returned result still carries the partial step
// trace accumulated so far.
func (e *Engine) RunWithEvents(ctx context.Context, req entity.RunRequest, sink EventSink) (*entity.RunResult, error) {
	result := &entity.RunResult{RunID: uuid.NewString()}
	emit := func(step entity.Step) {
		step.Timestamp = time.Now()
		result.Steps = append(result.Steps, step)
		if sink != nil {
			sink(step)
		}
	}

	fail := func(err error) (*entity.RunResult, error) {
		emit(entity.Step{Type: entity.StepError, Detail: err.Error()})
		e.logger.Warn().Str("run_id", result.RunID).Err(err).Msg("run failed")
		return result, err
	}

	if e.limiter != nil && req.CallerID != "" {
		allowed, err := e.limiter.CheckLimit(ctx, req.CallerID)
		if err != nil {
			return fail(fmt.Errorf("rate limiter check failed: %w", err))
		}
		if !allowed {
			return fail(entity.ErrRateLimitExceeded)
		}
	}

	conversation := []entity.Message{{Role: entity.RoleUser, Content: req.Input}}
	emit(entity.Step{Type: entity.StepStart, Detail: req.Input})

	toolDefs := e.tools.List()
	totalTokens := 0

	for step := 1; ; step++ {
		if step > e.maxSteps {
			return fail(fmt.Errorf("%w: %d steps", entity.ErrStepLimitExceeded, e.maxSteps))
		}
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("%w: %v", entity.ErrCancelled, err))
		}

		resp, err := e.gateway.Route(ctx, req.Model, conversation, toolDefs, req.Options, req.Input)
		if err != nil {
			return fail(err)
		}
		result.Model = resp.Model
		totalTokens += resp.TotalTokens()
		emit(entity.Step{Type: entity.StepModelCall, Model: resp.Model, Cached: resp.Cached})

		if len(resp.ToolCalls) == 0 {
			conversation = append(conversation, entity.Message{
				Role:    entity.RoleAssistant,
				Content: resp.Content,
			})
			result.Content = resp.Content
			emit(entity.Step{Type: entity.StepFinal, Model: resp.Model, Detail: resp.Content})
			e.finishRun(req, totalTokens)
			e.logger.Info().Str("run_id", result.RunID).Str("model", resp.Model).Int("steps", step).Msg("run complete")
			return result, nil
		}

		conversation = append(conversation, entity.Message{
			Role:      entity.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Dispatch in the order the model returned; tool order shapes the
		// context the next inference sees.
		for _, call := range resp.ToolCalls {
			emit(entity.Step{Type: entity.StepToolCall, Tool: call.Name, Detail: string(call.Arguments)})

			outcome := e.dispatch(ctx, call)

			// A dispatched tool runs to completion, but a cancelled run
			// discards its result rather than committing more state.
			if err := ctx.Err(); err != nil {
				return fail(fmt.Errorf("%w: %v", entity.ErrCancelled, err))
			}

			conversation = append(conversation, entity.Message{
				Role:     entity.RoleTool,
				Content:  outcome,
				ToolName: call.Name,
			})
			emit(entity.Step{Type: entity.StepToolResult, Tool: call.Name, Detail: outcome})
		}
	}
}

// dispatch invokes one tool and renders its outcome as conversation text.
// Tool-layer failures are fed back to the model as an error description so
// it gets a chance to recover; the step bound ends persistent failure.
func (e *Engine) dispatch(ctx context.Context, call entity.ToolCall) string {
	value, err := e.tools.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		e.logger.Warn().Str("tool", call.Name).Err(err).Msg("tool invocation failed")
		return fmt.Sprintf("Error: %v", err)
	}
	return tool.FormatResult(value)
}

// finishRun settles the caller's token budget in the background; the
// request context may already be gone.
func (e *Engine) finishRun(req entity.RunRequest, totalTokens int) {
	if e.limiter == nil || req.CallerID == "" || totalTokens == 0 {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.limiter.Increment(bgCtx, req.CallerID, totalTokens); err != nil {
			e.logger.Warn().Str("caller_id", req.CallerID).Err(err).Msg("usage increment failed")
		}
	}()
}
