package handlers

import (
	"log/slog"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/gofiber/fiber/v2"
)

type DraftHandler struct {
	s service.DraftService
}

func NewDraftHandler(service service.DraftService) *DraftHandler {
	return &DraftHandler{s: service}
}

func (h *DraftHandler) GetDraft(c *fiber.Ctx) error {
	draft, err := h.s.Get(c.Context(), GetUserID(c))
	if err != nil {
		return sendError(c, err, "Unable to load draft")
	}

	return c.Status(fiber.StatusOK).JSON(draft)
}

func (h *DraftHandler) SaveDraft(c *fiber.Ctx) error {
	var draft models.Draft
	if err := c.BodyParser(&draft); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse draft")
	}

	saved, err := h.s.Save(c.Context(), GetUserID(c), &draft)
	if err != nil {
		return sendError(c, err, "Unable to save draft")
	}

	return c.Status(fiber.StatusOK).JSON(saved)
}

func (h *DraftHandler) DiscardDraft(c *fiber.Ctx) error {
	if err := h.s.Discard(c.Context(), GetUserID(c)); err != nil {
		return sendError(c, err, "Unable to discard draft")
	}

	return c.SendStatus(fiber.StatusOK)
}
