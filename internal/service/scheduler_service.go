package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/schedule"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SweepReport summarizes one due-post sweep.
type SweepReport struct {
	Materialized int `json:"materialized"`
	Completed    int `json:"completed"`
	Dispatched   int `json:"dispatched"`
	Published    int `json:"published"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	Reaped       int `json:"reaped"`
}

type SchedulerService interface {
	PublishNow(ctx context.Context, userID, postID string) (*DispatchResult, error)
	RetryPost(ctx context.Context, userID, postID string) (*DispatchResult, error)
	Sweep(ctx context.Context, now time.Time) (*SweepReport, error)
}

type SchedulerOptions struct {
	Concurrency int
	BatchSize   int
	// StaleAfter is how long a post may stay pending before the sweep fails it.
	StaleAfter time.Duration
}

type schedulerService struct {
	posts    repository.PostRepository
	rules    repository.RecurringPostRepository
	dispatch DispatchService
	metrics  Metrics
	opts     SchedulerOptions
}

func NewSchedulerService(
	posts repository.PostRepository,
	rules repository.RecurringPostRepository,
	dispatch DispatchService,
	metrics Metrics,
	opts SchedulerOptions) SchedulerService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 10
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 500
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = StaleClaimAfter(3, 15*time.Second, time.Second)
	}
	return &schedulerService{
		posts:    posts,
		rules:    rules,
		dispatch: dispatch,
		metrics:  metrics,
		opts:     opts,
	}
}

// PublishNow dispatches the post right away, whatever its scheduledFor says.
func (s *schedulerService) PublishNow(ctx context.Context, userID, postID string) (*DispatchResult, error) {
	if err := s.checkOwner(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.dispatch.Dispatch(ctx, postID), nil
}

func (s *schedulerService) RetryPost(ctx context.Context, userID, postID string) (*DispatchResult, error) {
	if err := s.checkOwner(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.dispatch.Retry(ctx, postID), nil
}

func (s *schedulerService) checkOwner(ctx context.Context, userID, postID string) error {
	isValid, err := s.posts.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return fmt.Errorf("error checking post owner: %w", err)
	}
	if !isValid {
		return ErrPostNotFound
	}
	return nil
}

// Sweep fails claims abandoned by a dead dispatcher, materializes due
// recurring posts, then dispatches every scheduled post that is due.
// Overlapping sweeps are safe: the dispatcher's claim lets only one of them
// publish a given post.
func (s *schedulerService) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	start := time.Now()
	report := &SweepReport{}

	reaped, err := s.posts.FailStale(ctx, now.Add(-s.opts.StaleAfter), models.ErrorKindTransientNetwork, DispatchInterrupted)
	if err != nil {
		slog.Error("error failing stale claims", "error", err)
	}
	report.Reaped = reaped
	if reaped > 0 {
		slog.Warn("failed posts left pending by an interrupted publish", "count", reaped)
	}

	if err := s.materialize(ctx, now, report); err != nil {
		return report, err
	}

	due, err := s.posts.ListDue(ctx, now, s.opts.BatchSize)
	if err != nil {
		return report, fmt.Errorf("error listing due posts: %w", err)
	}

	s.dispatchAll(ctx, due, report)

	s.metrics.SweepFinished(report, time.Since(start))
	if report.Materialized > 0 || report.Dispatched > 0 || report.Reaped > 0 {
		slog.Info("sweep finished",
			"materialized", report.Materialized,
			"dispatched", report.Dispatched,
			"published", report.Published,
			"failed", report.Failed,
			"skipped", report.Skipped,
		)
	}
	return report, nil
}

// materialize spawns at most one post per active rule and tick. lastPostedAt
// only moves once the post exists, so a crash in between re-materializes the
// same instant, which the existence check and the unique index absorb.
func (s *schedulerService) materialize(ctx context.Context, now time.Time, report *SweepReport) error {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("error listing recurring posts: %w", err)
	}

	for _, rule := range rules {
		at, ok := schedule.Upcoming(rule)
		if !ok {
			if rule.EndDate != nil {
				if err := s.rules.SetStatus(ctx, rule.ID, models.RecurringStatusCompleted); err != nil {
					slog.Error("error completing recurring post", "recurring_post_id", rule.ID, "error", err)
					continue
				}
				report.Completed++
			}
			continue
		}
		if at.After(now) {
			continue
		}

		created, err := s.spawn(ctx, rule, at)
		if err != nil {
			slog.Error("error materializing recurring post", "recurring_post_id", rule.ID, "at", at, "error", err)
			continue
		}
		if created {
			report.Materialized++
		}

		if err := s.rules.AdvanceLastPosted(ctx, rule.ID, at); err != nil {
			slog.Error("error advancing recurring post", "recurring_post_id", rule.ID, "error", err)
		}
	}
	return nil
}

func (s *schedulerService) spawn(ctx context.Context, rule *models.RecurringPost, at time.Time) (bool, error) {
	exists, err := s.posts.ExistsForOccurrence(ctx, rule.ID, at)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	id, err := gonanoid.New()
	if err != nil {
		return false, fmt.Errorf("error generating post id: %w", err)
	}

	err = s.posts.Create(ctx, rule.Occurrence(id, at))
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *schedulerService) dispatchAll(ctx context.Context, due []*models.Post, report *SweepReport) {
	seen := make(map[string]struct{}, len(due))
	var mu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.opts.Concurrency)

	for _, post := range due {
		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(postID string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result := s.dispatch.Dispatch(ctx, postID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case result.Status == models.PostStatusPublished:
				report.Dispatched++
				report.Published++
			case result.Status == models.PostStatusFailed:
				report.Dispatched++
				report.Failed++
			default:
				report.Skipped++
			}
		}(post.ID)
	}

	wg.Wait()
}
