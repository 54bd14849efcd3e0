package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"axon-core/internal/domain/entity"
	"axon-core/internal/tool"
	"axon-core/internal/usecase"
)

type ChatHandler struct {
	engine  *usecase.Engine
	gateway *usecase.Gateway
	tools   *tool.Registry
	metrics MetricsStore
}

// MetricsStore is the read/clear surface the handler needs from the
// aggregator.
type MetricsStore interface {
	Snapshot() entity.MetricsSnapshot
	Clear()
}

func NewChatHandler(engine *usecase.Engine, gateway *usecase.Gateway, tools *tool.Registry, metrics MetricsStore) *ChatHandler {
	return &ChatHandler{engine: engine, gateway: gateway, tools: tools, metrics: metrics}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req entity.RunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Input == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "input is required"})
	}

	result, err := h.engine.Run(c.Context(), req)
	if err != nil {
		return h.writeRunError(c, result, err)
	}

	c.Set("X-Axon-Cache-Hit", "false")
	if runWasCached(result) {
		c.Set("X-Axon-Cache-Hit", "true")
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleChatStream streams each run step as a line of JSON, followed by the
// terminal result or error.
func (h *ChatHandler) HandleChatStream(c *fiber.Ctx) error {
	var req entity.RunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Input == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "input is required"})
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")

	engine := h.engine
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		enc := json.NewEncoder(w)
		sink := func(step entity.Step) {
			_ = enc.Encode(step)
			_ = w.Flush()
		}

		result, err := engine.RunWithEvents(context.Background(), req, sink)
		if err != nil {
			_ = enc.Encode(fiber.Map{
				"error": entity.ErrorKind(err),
				"cause": err.Error(),
			})
		} else {
			_ = enc.Encode(result)
		}
		_ = w.Flush()
	})

	return nil
}

func (h *ChatHandler) HandleModels(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"models": h.gateway.Models()})
}

func (h *ChatHandler) HandleTools(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"tools": h.tools.List()})
}

func (h *ChatHandler) HandleMetrics(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.metrics.Snapshot())
}

func (h *ChatHandler) HandleMetricsReset(c *fiber.Ctx) error {
	h.metrics.Clear()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "metrics reset"})
}

func (h *ChatHandler) HandleCacheClear(c *fiber.Ctx) error {
	h.gateway.ClearCache()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "cache cleared"})
}

// writeRunError maps domain errors to HTTP statuses. The partial step trace
// rides along so callers can see how far the run got.
func (h *ChatHandler) writeRunError(c *fiber.Ctx, result *entity.RunResult, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrRateLimitExceeded):
		status = fiber.StatusTooManyRequests
	case errors.Is(err, entity.ErrUnknownModel):
		status = fiber.StatusBadRequest
	case errors.Is(err, entity.ErrStepLimitExceeded):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrCancelled):
		status = 499 // client closed request
	case errors.Is(err, entity.ErrBackendUnavailable),
		errors.Is(err, entity.ErrBackendRejected),
		errors.Is(err, entity.ErrBackendTimeout):
		status = fiber.StatusBadGateway
	}

	body := fiber.Map{
		"error": entity.ErrorKind(err),
		"cause": err.Error(),
	}
	if result != nil {
		body["run_id"] = result.RunID
		body["steps"] = result.Steps
	}
	return c.Status(status).JSON(body)
}

func runWasCached(result *entity.RunResult) bool {
	for _, step := range result.Steps {
		if step.Type == entity.StepModelCall && !step.Cached {
			return false
		}
	}
	return true
}
