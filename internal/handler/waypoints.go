package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/orbitshot/api/internal/model"
	"github.com/orbitshot/api/internal/service"
	"github.com/orbitshot/api/internal/store"
	"github.com/orbitshot/api/pkg/response"
)

type WaypointHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
}

func NewWaypointHandler(svc *service.GenerationService, v *validator.Validate) *WaypointHandler {
	return &WaypointHandler{
		service:   svc,
		validator: v,
	}
}

// Get handles GET /api/waypoints/:id
func (h *WaypointHandler) Get(c *fiber.Ctx) error {
	wp, err := h.service.GetWaypoint(c.Params("id"))
	if err != nil {
		return waypointError(c, err)
	}
	return response.OK(c, wp)
}

// Redo handles POST /api/waypoints/:id/redo
func (h *WaypointHandler) Redo(c *fiber.Ctx) error {
	var req model.RedoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.RedoWaypoint(c.Context(), c.Params("id"), &req)
	if err != nil {
		return waypointError(c, err)
	}

	return response.Accepted(c, result)
}

// PreviousVersion handles POST /api/waypoints/:id/versions/previous
func (h *WaypointHandler) PreviousVersion(c *fiber.Ctx) error {
	wp, err := h.service.SelectPreviousVersion(c.Params("id"))
	if err != nil {
		return waypointError(c, err)
	}
	return response.OK(c, wp)
}

// NextVersion handles POST /api/waypoints/:id/versions/next
func (h *WaypointHandler) NextVersion(c *fiber.Ctx) error {
	wp, err := h.service.SelectNextVersion(c.Params("id"))
	if err != nil {
		return waypointError(c, err)
	}
	return response.OK(c, wp)
}

// ToggleOriginal handles POST /api/waypoints/:id/original
func (h *WaypointHandler) ToggleOriginal(c *fiber.Ctx) error {
	var req model.ToggleOriginalRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	wp, err := h.service.ToggleOriginal(c.Params("id"), &req)
	if err != nil {
		return waypointError(c, err)
	}

	return response.OK(c, wp)
}

func waypointError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return response.NotFound(c, "Waypoint not found")
	case errors.Is(err, store.ErrAlreadyGenerating):
		return response.Conflict(c, "Waypoint is already generating")
	case errors.Is(err, store.ErrGenerating):
		return response.Conflict(c, "Waypoint is generating")
	}
	return response.ServiceError(c, err.Error())
}
