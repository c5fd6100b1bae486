package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/dmflow/internal/graph"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/service"
)

func GetOperator(c *fiber.Ctx) string {
	operator, _ := c.Locals("operator").(string)
	return operator
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	var apiErr *graph.APIError
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, graph.ErrMediaNotPublic):
		return fiber.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNoActiveAccount), errors.Is(err, service.ErrPostNotPending):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrNoLinkedAccount):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error(err.Error(), "path", c.Path())
		return c.Status(status).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func queryID(c *fiber.Ctx) (int64, bool) {
	id := c.QueryInt("id", 0)
	return int64(id), id > 0
}

func missingID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "id is required",
	})
}
