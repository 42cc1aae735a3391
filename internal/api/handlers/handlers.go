package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"backend/internal/api/middleware"
	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/repository"
	"backend/internal/service"
)

// Handler wires the HTTP surface to the submission and rank services.
type Handler struct {
	submissions    *service.SubmissionService
	ranks          *service.RankService
	limiter        *repository.RedisRepository
	rankPollWindow time.Duration
	health         func(ctx context.Context) error
	validator      *validator.Validate
}

// New creates the handler set. health pings every backing store.
func New(
	submissions *service.SubmissionService,
	ranks *service.RankService,
	limiter *repository.RedisRepository,
	rankPollWindow time.Duration,
	health func(ctx context.Context) error,
) *Handler {
	return &Handler{
		submissions:    submissions,
		ranks:          ranks,
		limiter:        limiter,
		rankPollWindow: rankPollWindow,
		health:         health,
		validator:      validator.New(),
	}
}

// StartRun handles POST /api/v1/runs
func (h *Handler) StartRun(c *fiber.Ctx) error {
	resp, err := h.submissions.StartRun(c.Context(), middleware.CallerID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// SubmitScore handles POST /api/v1/scores
func (h *Handler) SubmitScore(c *fiber.Ctx) error {
	var req models.SubmitScoreRequest

	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "invalid request body", err)
	}
	if err := h.validator.Struct(&req); err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "validation failed", err)
	}

	err := h.submissions.SubmitScore(c.Context(), middleware.CallerID(c), req.RunID, req.Score, req.DisplayName)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// MyRank handles GET /api/v1/rank/me
func (h *Handler) MyRank(c *fiber.Ctx) error {
	caller := middleware.CallerID(c)

	if h.limiter != nil {
		allowed, err := h.limiter.AllowRankQuery(c.Context(), caller, h.rankPollWindow)
		if err != nil {
			// Limiter outage must not take the rank endpoint down
			allowed = true
		}
		if !allowed {
			return fiber.NewError(fiber.StatusTooManyRequests, "rank polling too fast")
		}
	}

	resp, err := h.ranks.MyRank(c.Context(), caller)
	if err != nil {
		return err
	}
	if resp == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *Handler) Leaderboard(c *fiber.Ctx) error {
	pageSize := 0
	if raw := c.Query("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return apperr.New(apperr.InvalidArgument, "page_size must be an integer")
		}
		pageSize = v
	}

	resp, err := h.ranks.TopPage(c.Context(), pageSize, c.Query("cursor"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// HealthCheck handles GET /api/v1/health
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	if err := h.health(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error:   "Health check failed",
			Message: err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "healthy",
		"message": "All systems operational",
	})
}

// ErrorHandler translates classified errors into their HTTP responses. It is
// installed as the Fiber app's global error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{
			Error:   "Request failed",
			Message: fiberErr.Message,
		})
	}

	appErr := apperr.From(err)
	return c.Status(appErr.Code.HTTPStatus()).JSON(models.ErrorResponse{
		Error:   "Request failed",
		Code:    string(appErr.Code),
		Message: appErr.Message,
	})
}
