package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/dmflow/internal/service"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{s: service}
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, activeID, err := h.s.List(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(transfer.AccountsResponse{
		ActiveAccountID: activeID,
		Accounts:        accounts,
	})
}

func (h *AccountHandler) ConnectToken(c *fiber.Ctx) error {
	var input transfer.TokenInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse json",
		})
	}

	account, err := h.s.ConnectToken(c.Context(), input.Token)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *AccountHandler) SwitchAccount(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return missingID(c)
	}

	if err := h.s.Switch(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) RemoveAccount(c *fiber.Ctx) error {
	id, ok := queryID(c)
	if !ok {
		return missingID(c)
	}

	if err := h.s.Remove(c.Context(), id); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) VerifyAccount(c *fiber.Ctx) error {
	account, err := h.s.Verify(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(account)
}

func (h *AccountHandler) ListMedia(c *fiber.Ctx) error {
	media, err := h.s.Media(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(media)
}
