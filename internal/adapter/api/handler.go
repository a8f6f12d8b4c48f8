package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"uigen/internal/domain/entity"
	"uigen/internal/metrics"
)

const (
	msgGenerationFailed = "Failed to generate UI. Please check the AI provider configuration and try again."
	msgSaveFailed       = "Failed to save generation"
	msgListFailed       = "Failed to retrieve generations"
	msgSimilarFailed    = "Failed to search similar generations"
	msgUnexpected       = "An unexpected error occurred while generating UI"
)

type RequestParser interface {
	Parse(body []byte) (entity.GenerateRequest, error)
}

type UIGenerator interface {
	Generate(ctx context.Context, req entity.GenerateRequest) (*entity.GenerateUIResult, error)
}

type GenerationHistory interface {
	Recent(ctx context.Context) ([]entity.Generation, error)
	Similar(ctx context.Context, prompt string, limit int) ([]entity.SimilarGeneration, error)
}

type GenerationHandler struct {
	parser    RequestParser
	generator UIGenerator
	history   GenerationHistory
	logger    *slog.Logger
}

func NewGenerationHandler(parser RequestParser, generator UIGenerator, history GenerationHistory, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		parser:    parser,
		generator: generator,
		history:   history,
		logger:    logger,
	}
}

// HandleGenerate serves POST /api/generate.
func (h *GenerationHandler) HandleGenerate(c *fiber.Ctx) error {
	req, err := h.parser.Parse(c.Body())
	if err != nil {
		h.logger.Info("generate request rejected", "err", err)
		metrics.IncGeneration("invalid")
		return h.writeError(c, err, msgUnexpected)
	}

	result, err := h.generator.Generate(c.UserContext(), req)
	if err != nil {
		h.logger.Error("generate UI failed",
			"output_format", req.OutputFormat,
			"framework", req.Framework,
			"err", err,
			"cause", errors.Unwrap(err),
		)
		return h.writeError(c, err, msgUnexpected)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleRecent serves GET /api/generations.
func (h *GenerationHandler) HandleRecent(c *fiber.Ctx) error {
	gens, err := h.history.Recent(c.UserContext())
	if err != nil {
		h.logger.Error("get generations failed", "err", err)
		metrics.IncError("api", "list_generations")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": msgListFailed})
	}
	return c.Status(fiber.StatusOK).JSON(gens)
}

// HandleSimilar serves GET /api/generations/similar?prompt=...&limit=N.
func (h *GenerationHandler) HandleSimilar(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 5)
	out, err := h.history.Similar(c.UserContext(), c.Query("prompt"), limit)
	if err != nil {
		if errors.Is(err, entity.ErrSimilarityOff) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		}
		h.logger.Error("similar generations failed", "err", err)
		return h.writeError(c, err, msgSimilarFailed)
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

// writeError maps domain errors to status codes. Only validation errors carry detail.
func (h *GenerationHandler) writeError(c *fiber.Ctx, err error, fallback string) error {
	var ve *entity.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": ve.Message,
			"errors":  ve.Errors,
		})
	}

	msg := fallback
	switch {
	case errors.Is(err, entity.ErrGeneration):
		metrics.IncError("api", "generation")
		msg = msgGenerationFailed
	case errors.Is(err, entity.ErrPersistence):
		metrics.IncError("api", "persistence")
		if fallback == msgUnexpected {
			msg = msgSaveFailed
		}
	default:
		metrics.IncError("api", "unexpected")
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": msg})
}
