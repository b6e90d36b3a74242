package handlers

import (
	"log/slog"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{s: service}
}

// ConnectSocialAccount stores the output of a completed OAuth flow.
func (h *AccountHandler) ConnectSocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var ac transfer.AccountConnection
	if err := c.BodyParser(&ac); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse account")
	}

	account, err := h.s.Connect(c.Context(), userID, &ac)
	if err != nil {
		return sendError(c, err, "Unable to connect social account")
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accountList, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return sendError(c, err, "Failed to fetch social accounts")
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *AccountHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	if err := h.s.Delete(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return sendError(c, err, "Unable to delete social account")
	}

	return c.SendStatus(fiber.StatusOK)
}
