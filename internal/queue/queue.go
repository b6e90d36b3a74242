package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/hibiken/asynq"
)

const TaskTypePublishPost = "post:publish"

type PublishPostPayload struct {
	PostID       string    `json:"post_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// Queue hands scheduled posts to asynq so they fire at their scheduledFor
// instead of waiting for the next sweep.
type Queue struct {
	client *asynq.Client
}

func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) EnqueuePost(ctx context.Context, post *models.Post) error {
	task, opts, err := newPublishTask(post)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error enqueuing post %s: %w", post.ID, err)
	}

	slog.Info("post enqueued", "post_id", post.ID, "task_id", info.ID, "process_at", info.NextProcessAt)
	return nil
}

// newPublishTask builds one task per post and slot. Rescheduling a post gives
// it a new task id; the stale task finds the post not due and drops it.
// The dispatcher retries platform errors itself, so asynq never does.
func newPublishTask(post *models.Post) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: post.ID, ScheduledFor: post.ScheduledFor.UTC()})
	if err != nil {
		return nil, nil, err
	}

	opts := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("%s:%d", post.ID, post.ScheduledFor.Unix())),
		asynq.ProcessAt(post.ScheduledFor),
		asynq.MaxRetry(0),
		asynq.Retention(24 * time.Hour),
	}
	return asynq.NewTask(TaskTypePublishPost, payload), opts, nil
}
