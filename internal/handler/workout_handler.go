package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/service"
	"github.com/mansoorceksport/liftlog/internal/telemetry"
)

// WorkoutHandler exposes the guided session commands
type WorkoutHandler struct {
	registry *service.Registry
}

func NewWorkoutHandler(registry *service.Registry) *WorkoutHandler {
	return &WorkoutHandler{registry: registry}
}

type setWeightRequest struct {
	Weight string `json:"weight"`
}

// StartSession creates a backend session for a workout day and opens it
func (h *WorkoutHandler) StartSession(c *fiber.Ctx) error {
	dayID, err := paramID(c, "day_id")
	if err != nil {
		return err
	}
	w, err := h.registry.Start(c.UserContext(), middleware.GetUserID(c), dayID)
	if err != nil {
		return writeError(c, err)
	}
	telemetry.SetSpanAttribute(c, "session.id", strconv.FormatInt(w.SessionID(), 10))
	return c.Status(fiber.StatusCreated).JSON(w.View())
}

// OpenSession mounts an existing session, resuming a saved snapshot
func (h *WorkoutHandler) OpenSession(c *fiber.Ctx) error {
	sessionID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	w, err := h.registry.Open(c.UserContext(), middleware.GetUserID(c), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(w.View())
}

func (h *WorkoutHandler) GetSession(c *fiber.Ctx) error {
	sessionID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	w, err := h.registry.Get(middleware.GetUserID(c), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(w.View())
}

func (h *WorkoutHandler) Next(c *fiber.Ctx) error {
	return h.do(c, func(ctx context.Context, w *service.ActiveWorkout) (*domain.WorkoutView, error) {
		return w.Advance(ctx)
	})
}

func (h *WorkoutHandler) Skip(c *fiber.Ctx) error {
	return h.do(c, func(ctx context.Context, w *service.ActiveWorkout) (*domain.WorkoutView, error) {
		return w.Skip(ctx)
	})
}

func (h *WorkoutHandler) Previous(c *fiber.Ctx) error {
	return h.do(c, func(_ context.Context, w *service.ActiveWorkout) (*domain.WorkoutView, error) {
		return w.Retreat()
	})
}

func (h *WorkoutHandler) ToggleClock(c *fiber.Ctx) error {
	return h.do(c, func(_ context.Context, w *service.ActiveWorkout) (*domain.WorkoutView, error) {
		return w.ToggleClock()
	})
}

func (h *WorkoutHandler) SetWeight(c *fiber.Ctx) error {
	var req setWeightRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	return h.do(c, func(_ context.Context, w *service.ActiveWorkout) (*domain.WorkoutView, error) {
		return w.SetWeight(req.Weight)
	})
}

// ExitSession leaves the workout without completing it
func (h *WorkoutHandler) ExitSession(c *fiber.Ctx) error {
	sessionID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.registry.Exit(middleware.GetUserID(c), sessionID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "exited"})
}

func (h *WorkoutHandler) do(c *fiber.Ctx, cmd func(ctx context.Context, w *service.ActiveWorkout) (*domain.WorkoutView, error)) error {
	sessionID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	view, err := h.registry.Do(ctx, middleware.GetUserID(c), sessionID, func(w *service.ActiveWorkout) (*domain.WorkoutView, error) {
		return cmd(ctx, w)
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(view)
}
