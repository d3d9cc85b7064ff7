package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/fittrack/internal/middleware"
	"github.com/mansoorceksport/fittrack/internal/service"
	"go.uber.org/zap"
)

// ProgressHandler serves the read side: stats, records and achievements
type ProgressHandler struct {
	progressService *service.ProgressService
	log             *zap.Logger
}

func NewProgressHandler(progressService *service.ProgressService, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, log: log}
}

// GetStats handles GET /v1/me/stats
func (h *ProgressHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.progressService.GetProgressStats(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	// stats change after every completion, never let a browser or proxy hold them
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	return c.JSON(stats)
}

// Recompute handles POST /v1/me/stats/recompute?dry_run=true
func (h *ProgressHandler) Recompute(c *fiber.Ctx) error {
	res, err := h.progressService.Rebuild(c.UserContext(), middleware.GetUserID(c), c.QueryBool("dry_run", false))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(res)
}

// GetRecords handles GET /v1/me/records
func (h *ProgressHandler) GetRecords(c *fiber.Ctx) error {
	records, err := h.progressService.GetPersonalRecords(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(records)
}

// GetAchievements handles GET /v1/me/achievements
func (h *ProgressHandler) GetAchievements(c *fiber.Ctx) error {
	views, err := h.progressService.GetAchievements(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(views)
}
