package job

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
)

// SweepJob runs the due-post sweep on every cron tick. A tick that lands
// while the previous sweep is still running is skipped.
type SweepJob struct {
	scheduler service.SchedulerService
	running   atomic.Bool
	now       func() time.Time
}

func NewSweepJob(scheduler service.SchedulerService) *SweepJob {
	return &SweepJob{scheduler: scheduler, now: time.Now}
}

func (j *SweepJob) Sweep() {
	if !j.running.CompareAndSwap(false, true) {
		slog.Warn("previous sweep still running, skipping tick")
		return
	}
	defer j.running.Store(false)

	if _, err := j.scheduler.Sweep(context.Background(), j.now()); err != nil {
		slog.Error("sweep failed", "error", err)
	}
}
