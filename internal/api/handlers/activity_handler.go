package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/dmflow/internal/service"
)

type ActivityHandler struct {
	s service.ActivityService
}

func NewActivityHandler(service service.ActivityService) *ActivityHandler {
	return &ActivityHandler{s: service}
}

func (h *ActivityHandler) ListMessages(c *fiber.Ctx) error {
	messages, err := h.s.Messages(c.Context(), c.Query("status"), c.QueryInt("limit", 0))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(messages)
}

func (h *ActivityHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.s.Stats(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(stats)
}
