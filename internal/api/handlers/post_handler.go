package handlers

import (
	"log/slog"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type PostHandler struct {
	s   service.PostService
	sch service.SchedulerService
}

func NewPostHandler(service service.PostService, scheduler service.SchedulerService) *PostHandler {
	return &PostHandler{s: service, sch: scheduler}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse post")
	}

	post, conflict, err := h.s.Create(c.Context(), userID, &pc)
	if err != nil {
		return sendError(c, err, "Unable to create post")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post":     post,
		"conflict": conflict,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return sendError(c, err, "Unable to list posts")
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	post, err := h.s.PostInfo(c.Context(), userID, c.Params("id"))
	if err != nil {
		return sendError(c, err, "Unable to get post")
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pu transfer.PostUpdate
	if err := c.BodyParser(&pu); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse post update")
	}

	post, err := h.s.Update(c.Context(), userID, c.Params("id"), &pu)
	if err != nil {
		return sendError(c, err, "Unable to update post")
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) ReschedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var rs transfer.Reschedule
	if err := c.BodyParser(&rs); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse schedule")
	}

	post, err := h.s.Reschedule(c.Context(), userID, c.Params("id"), rs.ScheduledFor)
	if err != nil {
		return sendError(c, err, "Unable to reschedule post")
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) CheckConflict(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var cc transfer.ConflictCheck
	if err := c.BodyParser(&cc); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse conflict check")
	}

	conflict, err := h.s.CheckConflict(c.Context(), userID, &cc)
	if err != nil {
		return sendError(c, err, "Unable to check conflicts")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"conflict": conflict,
	})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.s.Remove(c.Context(), userID, c.Params("id")); err != nil {
		return sendError(c, err, "Unable to remove post")
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)

	result, err := h.sch.PublishNow(c.Context(), userID, c.Params("id"))
	if err != nil {
		return sendError(c, err, "Unable to publish post")
	}

	return sendDispatch(c, result)
}

func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	result, err := h.sch.RetryPost(c.Context(), userID, c.Params("id"))
	if err != nil {
		return sendError(c, err, "Unable to retry post")
	}

	return sendDispatch(c, result)
}
