package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/service"
)

// TodayHandler manages the workout day picked for today
type TodayHandler struct {
	today *service.TodayService
}

func NewTodayHandler(today *service.TodayService) *TodayHandler {
	return &TodayHandler{today: today}
}

type setTodayRequest struct {
	WorkoutDayID int64 `json:"workout_day_id"`
}

func (h *TodayHandler) GetToday(c *fiber.Ctx) error {
	view, err := h.today.Get(c.UserContext(), middleware.GetUserID(c))
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No workout picked for today"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

func (h *TodayHandler) SetToday(c *fiber.Ctx) error {
	var req setTodayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.WorkoutDayID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "workout_day_id is required"})
	}
	view, err := h.today.Set(c.UserContext(), middleware.GetUserID(c), req.WorkoutDayID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}

func (h *TodayHandler) ClearToday(c *fiber.Ctx) error {
	if err := h.today.Clear(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleExercise flips the check mark of one exercise in today's pick
func (h *TodayHandler) ToggleExercise(c *fiber.Ctx) error {
	exerciseID, err := paramID(c, "exercise_id")
	if err != nil {
		return err
	}
	view, err := h.today.ToggleExercise(c.UserContext(), middleware.GetUserID(c), exerciseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}
