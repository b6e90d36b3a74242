package handlers

import (
	"log/slog"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type RecurringHandler struct {
	s service.RecurringService
}

func NewRecurringHandler(service service.RecurringService) *RecurringHandler {
	return &RecurringHandler{s: service}
}

func (h *RecurringHandler) CreateRecurringPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var rc transfer.RecurringPostCreation
	if err := c.BodyParser(&rc); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse recurring post")
	}

	rule, err := h.s.Create(c.Context(), userID, &rc)
	if err != nil {
		return sendError(c, err, "Unable to create recurring post")
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *RecurringHandler) ListRecurringPosts(c *fiber.Ctx) error {
	rules, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return sendError(c, err, "Unable to list recurring posts")
	}

	return c.Status(fiber.StatusOK).JSON(rules)
}

func (h *RecurringHandler) PauseRecurringPost(c *fiber.Ctx) error {
	rule, err := h.s.Pause(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return sendError(c, err, "Unable to pause recurring post")
	}

	return c.Status(fiber.StatusOK).JSON(rule)
}

func (h *RecurringHandler) ResumeRecurringPost(c *fiber.Ctx) error {
	rule, err := h.s.Resume(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return sendError(c, err, "Unable to resume recurring post")
	}

	return c.Status(fiber.StatusOK).JSON(rule)
}

func (h *RecurringHandler) RemoveRecurringPost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return sendError(c, err, "Unable to remove recurring post")
	}

	return c.SendStatus(fiber.StatusOK)
}
