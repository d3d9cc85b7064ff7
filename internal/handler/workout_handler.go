package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/mansoorceksport/fittrack/internal/middleware"
	"github.com/mansoorceksport/fittrack/internal/service"
	"go.uber.org/zap"
)

const defaultCompletionsLimit = 50

type WorkoutHandler struct {
	workoutService *service.WorkoutService
	orchestrator   *service.CompletionOrchestrator
	log            *zap.Logger
}

func NewWorkoutHandler(
	workoutService *service.WorkoutService,
	orchestrator *service.CompletionOrchestrator,
	log *zap.Logger,
) *WorkoutHandler {
	return &WorkoutHandler{
		workoutService: workoutService,
		orchestrator:   orchestrator,
		log:            log,
	}
}

// CreateSession handles POST /v1/me/workouts
func (h *WorkoutHandler) CreateSession(c *fiber.Ctx) error {
	var req service.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	session, err := h.workoutService.CreateSession(c.UserContext(), middleware.GetUserID(c), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// ListSessions handles GET /v1/me/workouts
func (h *WorkoutHandler) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.workoutService.ListSessions(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(sessions)
}

// GetSession handles GET /v1/me/workouts/:id
func (h *WorkoutHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.workoutService.GetSession(c.UserContext(), middleware.GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(session)
}

// DeleteSession handles DELETE /v1/me/workouts/:id. Completed history stays.
func (h *WorkoutHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.workoutService.DeleteSession(c.UserContext(), middleware.GetUserID(c), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Workout deleted"})
}

// CompleteSession handles POST /v1/me/workouts/:id/complete
func (h *WorkoutHandler) CompleteSession(c *fiber.Ctx) error {
	res, err := h.orchestrator.CompleteWorkout(
		c.UserContext(),
		middleware.GetUserID(c),
		c.Params("id"),
		middleware.IdempotencyKey(c),
	)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(completionResponse(res))
}

// ListCompletions handles GET /v1/me/completions
func (h *WorkoutHandler) ListCompletions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultCompletionsLimit)
	if limit <= 0 {
		limit = defaultCompletionsLimit
	}

	records, err := h.workoutService.ListCompletions(c.UserContext(), middleware.GetUserID(c), int64(limit))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(records)
}

// GetPublicSession handles GET /v1/community/workouts/:id
func (h *WorkoutHandler) GetPublicSession(c *fiber.Ctx) error {
	session, err := h.workoutService.GetPublicSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(session)
}

func completionResponse(res *service.CompletionResult) fiber.Map {
	achievements := res.NewAchievements
	if achievements == nil {
		achievements = []*domain.Achievement{}
	}
	steps := res.Report.Steps
	if steps == nil {
		steps = []service.StepResult{}
	}

	return fiber.Map{
		"message":         "Workout completed!",
		"completion_id":   res.Record.ID,
		"completed_at":    res.Record.CompletedAt,
		"newAchievements": achievements,
		"replayed":        res.Replayed,
		"steps":           steps,
	}
}
