package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/service"
)

// DayLister lists the workout days of a plan
type DayLister interface {
	ListWorkoutDays(ctx context.Context, planID int64) ([]*domain.WorkoutDaySummary, error)
}

// StatsHandler serves backend reads and outbox maintenance
type StatsHandler struct {
	stats  domain.StatsAPI
	days   DayLister
	outbox *service.OutboxService
}

// NewStatsHandler accepts a nil days lister or outbox when those are disabled
func NewStatsHandler(stats domain.StatsAPI, days DayLister, outbox *service.OutboxService) *StatsHandler {
	return &StatsHandler{stats: stats, days: days, outbox: outbox}
}

func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.stats.GetStats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

func (h *StatsHandler) ListDays(c *fiber.Ctx) error {
	if h.days == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Day listing is not available"})
	}
	planID, err := strconv.ParseInt(c.Query("plan_id", "1"), 10, 64)
	if err != nil || planID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid plan_id"})
	}
	days, err := h.days.ListWorkoutDays(c.UserContext(), planID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"days": days})
}

// ReplayOutbox delivers due pending writes immediately
func (h *StatsHandler) ReplayOutbox(c *fiber.Ctx) error {
	if h.outbox == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Outbox is disabled"})
	}
	result, err := h.outbox.Replay(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}
