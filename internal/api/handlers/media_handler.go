package handlers

import (
	"log/slog"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/gofiber/fiber/v2"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(service service.MediaService) *MediaHandler {
	return &MediaHandler{s: service}
}

func (h *MediaHandler) UploadMedia(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		slog.Info(err.Error())
		return badRequest(c, "No file selected")
	}

	upload, err := h.s.Upload(c.Context(), GetUserID(c), file)
	if err != nil {
		return sendError(c, err, "Unable to upload media")
	}

	return c.Status(fiber.StatusCreated).JSON(upload)
}
