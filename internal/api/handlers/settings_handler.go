package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/dmflow/internal/service"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

type SettingsHandler struct {
	s service.SettingsService
}

func NewSettingsHandler(service service.SettingsService) *SettingsHandler {
	return &SettingsHandler{s: service}
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.s.All(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(settings)
}

func (h *SettingsHandler) UpdateSetting(c *fiber.Ctx) error {
	var update transfer.SettingUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	if err := h.s.Set(c.Context(), update.Key, update.Value); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
