package handlers

import (
	"errors"
	"log/slog"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/gofiber/fiber/v2"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// errorStatus maps service errors to HTTP status codes. Anything unknown is a 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrRecurringNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrScheduleConflict), errors.Is(err, service.ErrPostLocked):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrUnsupportedMedia):
		return fiber.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// sendError answers with the service error, or with fallback when the
// error is internal and its text should not leak.
func sendError(c *fiber.Ctx, err error, fallback string) error {
	status := errorStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		slog.Error(err.Error(), "path", c.Path())
		message = fallback
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// sendDispatch renders a dispatch outcome. The body is the same whichever
// entry point triggered it.
func sendDispatch(c *fiber.Ctx, result *service.DispatchResult) error {
	status := fiber.StatusOK
	switch {
	case result.Success():
	case result.Error == service.DispatchPostNotFound:
		status = fiber.StatusNotFound
	case result.Error == service.DispatchPostNotClaimable:
		status = fiber.StatusConflict
	case result.Kind != "":
		status = fiber.StatusUnprocessableEntity
	default:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(result.Response())
}
