package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	config "github.com/maheshrc27/dmflow/configs"
	"github.com/maheshrc27/dmflow/internal/service"
	"github.com/maheshrc27/dmflow/pkg/utils"
)

const stateTTL = 10 * time.Minute

// AuthURLSource builds the provider's consent URL.
type AuthURLSource interface {
	AuthCodeURL(state string) string
}

type AuthHandler struct {
	s   service.AccountService
	p   AuthURLSource
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AccountService, provider AuthURLSource) *AuthHandler {
	return &AuthHandler{s: service, p: provider, cfg: cfg}
}

// Connect sends the operator to the provider's consent page. The state is a
// short-lived token checked again in the callback.
func (h *AuthHandler) Connect(c *fiber.Ctx) error {
	state, err := utils.GenerateToken(h.cfg.SecretKey, GetOperator(c), stateTTL)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Redirect(h.p.AuthCodeURL(state))
}

func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if reason := c.Query("error_description", c.Query("error")); reason != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": reason,
		})
	}

	if _, err := utils.ValidateToken(h.cfg.SecretKey, c.Query("state")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate request",
		})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	account, err := h.s.ConnectCode(c.Context(), code)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(account)
}
