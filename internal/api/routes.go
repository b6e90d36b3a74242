package api

import (
	"net/http"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/api/handlers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type Handlers struct {
	Post      *handlers.PostHandler
	Publish   *handlers.PublishHandler
	Recurring *handlers.RecurringHandler
	Account   *handlers.AccountHandler
	Draft     *handlers.DraftHandler
	Media     *handlers.MediaHandler
}

// RegisterRoutes mounts the authenticated API under /api plus the
// unauthenticated health and metrics endpoints.
func RegisterRoutes(app *fiber.App, auth fiber.Handler, metrics http.Handler, h Handlers) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	api := app.Group("/api")
	api.Use(auth)

	post := h.Post
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/conflicts", post.CheckConflict)
	api.Get("/posts/:id", post.GetPost)
	api.Put("/posts/:id", post.UpdatePost)
	api.Delete("/posts/:id", post.RemovePost)
	api.Post("/posts/:id/reschedule", post.ReschedulePost)
	api.Post("/posts/:id/publish", post.PublishNow)
	api.Post("/posts/:id/retry", post.RetryPost)

	api.Post("/publish", h.Publish.Publish)
	api.Post("/sweep", h.Publish.Sweep)

	recurring := h.Recurring
	api.Post("/recurring", recurring.CreateRecurringPost)
	api.Get("/recurring", recurring.ListRecurringPosts)
	api.Post("/recurring/:id/pause", recurring.PauseRecurringPost)
	api.Post("/recurring/:id/resume", recurring.ResumeRecurringPost)
	api.Delete("/recurring/:id", recurring.RemoveRecurringPost)

	// social accounts api routes
	api.Post("/accounts", h.Account.ConnectSocialAccount)
	api.Get("/accounts", h.Account.ListSocialAccounts)
	api.Delete("/accounts/:id", h.Account.DeleteSocialAccount)

	api.Get("/drafts", h.Draft.GetDraft)
	api.Put("/drafts", h.Draft.SaveDraft)
	api.Delete("/drafts", h.Draft.DiscardDraft)

	api.Post("/media", h.Media.UploadMedia)
}
