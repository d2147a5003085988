package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mychess/internal/core"
)

// validationMiddleware parses and checks request bodies by route
func validationMiddleware(c *fiber.Ctx) error {
	// Only POST carries a body
	if c.Method() != fiber.MethodPost {
		return c.Next()
	}

	path := strings.TrimSuffix(c.Path(), "/")
	var requestType any

	switch {
	case strings.HasSuffix(path, "/rooms"):
		requestType = &core.CreateRoomRequest{}
	case strings.HasSuffix(path, "/join"):
		requestType = &core.JoinRoomRequest{}
	default:
		return c.Next() // No body on other endpoints
	}

	if err := c.BodyParser(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid request body",
			Code:    core.ErrCodeInvalidRequest,
			Details: err.Error(),
		})
	}

	if err := core.ValidateStruct(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrCodeInvalidRequest,
			Details: err.Error(),
		})
	}

	// Store validated body for handler use
	c.Locals("validatedBody", requestType)
	c.Locals("validated", true)

	return c.Next()
}

// validatedBody returns the body stored by validationMiddleware. A nil body
// means the error response has already been written.
func validatedBody[T any](c *fiber.Ctx) (*T, error) {
	validated, ok := c.Locals("validated").(bool)
	if !ok || !validated {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation bypass detected",
			Code:  core.ErrCodeInternalError,
		})
	}
	body, ok := c.Locals("validatedBody").(*T)
	if !ok {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
			Error: "validation data missing",
			Code:  core.ErrCodeInternalError,
		})
	}
	return body, nil
}
