package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type PublishHandler struct {
	sch service.SchedulerService
}

func NewPublishHandler(scheduler service.SchedulerService) *PublishHandler {
	return &PublishHandler{sch: scheduler}
}

// Publish is the dispatcher entry point. It always answers with the dispatch JSON.
func (h *PublishHandler) Publish(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.DispatchRequest
	if err := c.BodyParser(&req); err != nil || req.PostID == "" {
		if err != nil {
			slog.Info(err.Error())
		}
		return c.Status(fiber.StatusBadRequest).JSON(transfer.DispatchResponse{
			Error: "postId is required",
		})
	}

	result, err := h.sch.PublishNow(c.Context(), userID, req.PostID)
	if errors.Is(err, service.ErrPostNotFound) {
		return sendDispatch(c, &service.DispatchResult{PostID: req.PostID, Error: service.DispatchPostNotFound})
	}
	if err != nil {
		return sendError(c, err, "Unable to publish post")
	}

	return sendDispatch(c, result)
}

// Sweep runs one due-post sweep right away.
func (h *PublishHandler) Sweep(c *fiber.Ctx) error {
	report, err := h.sch.Sweep(c.Context(), time.Now())
	if err != nil {
		return sendError(c, err, "Unable to run sweep")
	}

	return c.Status(fiber.StatusOK).JSON(report)
}
