package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/dmflow/internal/service"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

type FlowHandler struct {
	s service.FlowService
}

func NewFlowHandler(service service.FlowService) *FlowHandler {
	return &FlowHandler{s: service}
}

func (h *FlowHandler) ListFlows(c *fiber.Ctx) error {
	flows, err := h.s.List(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(flows)
}

func (h *FlowHandler) SaveFlow(c *fiber.Ctx) error {
	var input transfer.FlowInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	flow, err := h.s.Save(c.Context(), &input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(flow)
}

func (h *FlowHandler) ToggleFlow(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return missingID(c)
	}

	if err := h.s.Toggle(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *FlowHandler) RemoveFlow(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return missingID(c)
	}

	if err := h.s.Remove(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
