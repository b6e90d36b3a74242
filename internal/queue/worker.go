package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
	"github.com/hibiken/asynq"
)

type Worker struct {
	posts    repository.PostRepository
	dispatch service.DispatchService
	now      func() time.Time
}

func NewWorker(posts repository.PostRepository, dispatch service.DispatchService) *Worker {
	return &Worker{posts: posts, dispatch: dispatch, now: time.Now}
}

func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishPostTask)
	return mux
}

// HandlePublishPostTask dispatches a post whose slot has come. Tasks for
// posts that were rescheduled, published or deleted in the meantime are dropped.
func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid publish payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := w.posts.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusScheduled {
		slog.Info("dropping publish task", "post_id", payload.PostID, "reason", "post is gone or not scheduled")
		return nil
	}
	if !post.ScheduledFor.Equal(payload.ScheduledFor) || post.ScheduledFor.After(w.now()) {
		slog.Info("dropping publish task", "post_id", payload.PostID, "reason", "post was rescheduled")
		return nil
	}

	result := w.dispatch.Dispatch(ctx, post.ID)
	if !result.Success() {
		slog.Info("publish task finished without publishing", "post_id", post.ID, "error", result.Error, "details", result.Details)
	}
	return nil
}
