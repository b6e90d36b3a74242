package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/platform"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/schedule"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// PostEnqueuer hands a scheduled post to the delayed task queue.
type PostEnqueuer interface {
	EnqueuePost(ctx context.Context, post *models.Post) error
}

type PostService interface {
	// Create stores a post. The bool reports a nearby scheduled post; it never blocks creation.
	Create(ctx context.Context, userID string, pc *transfer.PostCreation) (*models.Post, bool, error)
	List(ctx context.Context, userID string) ([]*models.Post, error)
	PostInfo(ctx context.Context, userID, postID string) (*models.Post, error)
	Update(ctx context.Context, userID, postID string, pu *transfer.PostUpdate) (*models.Post, error)
	Reschedule(ctx context.Context, userID, postID string, at time.Time) (*models.Post, error)
	CheckConflict(ctx context.Context, userID string, cc *transfer.ConflictCheck) (bool, error)
	Remove(ctx context.Context, userID, postID string) error
}

type PostOptions struct {
	ConflictScope  string
	ConflictWindow time.Duration
	Now            func() time.Time
}

type postService struct {
	pr    repository.PostRepository
	ac    repository.SocialAccountRepository
	queue PostEnqueuer
	opts  PostOptions
}

// NewPostService wires the post service. queue may be nil, in which case
// scheduled posts are only picked up by the sweep.
func NewPostService(pr repository.PostRepository, ac repository.SocialAccountRepository, queue PostEnqueuer, opts PostOptions) PostService {
	if opts.ConflictScope == "" {
		opts.ConflictScope = schedule.ConflictScopeGlobal
	}
	if opts.ConflictWindow <= 0 {
		opts.ConflictWindow = schedule.DefaultConflictWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &postService{pr: pr, ac: ac, queue: queue, opts: opts}
}

func (s *postService) Create(ctx context.Context, userID string, pc *transfer.PostCreation) (*models.Post, bool, error) {
	if pc == nil {
		return nil, false, fmt.Errorf("%w: post creation data is nil", ErrInvalidInput)
	}

	if err := s.checkAccount(ctx, userID, pc.SocialAccountID); err != nil {
		return nil, false, err
	}

	timezone, err := normalizeTimezone(pc.Timezone)
	if err != nil {
		return nil, false, err
	}

	post := &models.Post{
		UserID:          userID,
		SocialAccountID: pc.SocialAccountID,
		PostType:        pc.PostType,
		Content:         strings.TrimSpace(pc.Content),
		MediaURLs:       pc.MediaURLs,
		PollOptions:     pc.PollOptions,
		Hashtags:        pc.Hashtags,
		ScheduledFor:    storedInstant(s.opts.Now()),
		Timezone:        timezone,
		Status:          models.PostStatusScheduled,
	}
	if pc.ScheduledFor != nil {
		post.ScheduledFor = storedInstant(*pc.ScheduledFor)
	}
	if pc.Draft {
		post.Status = models.PostStatusDraft
	}

	if err := validatePost(post.PostType, post.Content, post.MediaURLs, post.PollOptions); err != nil {
		return nil, false, err
	}

	conflict := false
	if post.Status == models.PostStatusScheduled {
		conflict, err = s.conflicts(ctx, userID, post.SocialAccountID, "", post.ScheduledFor)
		if err != nil {
			return nil, false, err
		}
	}

	post.ID, err = gonanoid.New()
	if err != nil {
		return nil, false, fmt.Errorf("error generating post id: %w", err)
	}

	if err := s.pr.Create(ctx, post); err != nil {
		return nil, false, fmt.Errorf("error creating post: %w", err)
	}
	s.enqueue(ctx, post)

	return post, conflict, nil
}

func (s *postService) List(ctx context.Context, userID string) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting posts: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, userID, postID string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post: %w", err)
	}
	if post == nil || post.UserID != userID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, userID, postID string, pu *transfer.PostUpdate) (*models.Post, error) {
	if pu == nil {
		return nil, fmt.Errorf("%w: post update data is nil", ErrInvalidInput)
	}

	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if !post.Editable() {
		return nil, ErrPostLocked
	}

	if pu.Content != nil {
		post.Content = strings.TrimSpace(*pu.Content)
	}
	if pu.MediaURLs != nil {
		post.MediaURLs = *pu.MediaURLs
	}
	if pu.PollOptions != nil {
		post.PollOptions = *pu.PollOptions
	}
	if pu.Hashtags != nil {
		post.Hashtags = *pu.Hashtags
	}
	if pu.Timezone != nil {
		post.Timezone, err = normalizeTimezone(*pu.Timezone)
		if err != nil {
			return nil, err
		}
	}

	if err := validatePost(post.PostType, post.Content, post.MediaURLs, post.PollOptions); err != nil {
		return nil, err
	}

	if err := s.pr.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("error updating post: %w", err)
	}
	return s.PostInfo(ctx, userID, postID)
}

// Reschedule moves a post to a new slot, refusing slots that conflict with
// the user's other scheduled posts.
func (s *postService) Reschedule(ctx context.Context, userID, postID string, at time.Time) (*models.Post, error) {
	if at.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", ErrInvalidInput)
	}

	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if !post.Editable() {
		return nil, ErrPostLocked
	}

	conflict, err := s.conflicts(ctx, userID, post.SocialAccountID, post.ID, at)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrScheduleConflict
	}

	post.ScheduledFor = storedInstant(at)
	if err := s.pr.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("error rescheduling post: %w", err)
	}

	updated, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	s.enqueue(ctx, updated)
	return updated, nil
}

func (s *postService) CheckConflict(ctx context.Context, userID string, cc *transfer.ConflictCheck) (bool, error) {
	if cc == nil || cc.ScheduledFor.IsZero() {
		return false, fmt.Errorf("%w: scheduled time is required", ErrInvalidInput)
	}
	return s.conflicts(ctx, userID, cc.SocialAccountID, cc.ExcludePostID, cc.ScheduledFor)
}

func (s *postService) Remove(ctx context.Context, userID, postID string) error {
	post, err := s.PostInfo(ctx, userID, postID)
	if err != nil {
		return err
	}
	// Published posts are history; pending ones are being dispatched.
	if !post.Editable() {
		return ErrPostLocked
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

func (s *postService) conflicts(ctx context.Context, userID, accountID, excludeID string, at time.Time) (bool, error) {
	scope := ""
	if s.opts.ConflictScope == schedule.ConflictScopeAccount {
		scope = accountID
	}

	times, err := s.pr.ScheduledTimes(ctx, userID, scope, excludeID)
	if err != nil {
		return false, fmt.Errorf("error loading scheduled posts: %w", err)
	}
	return schedule.HasConflict(at.UTC(), times, s.opts.ConflictWindow), nil
}

func (s *postService) checkAccount(ctx context.Context, userID, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("%w: social account is required", ErrInvalidInput)
	}
	isValid, err := s.ac.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return fmt.Errorf("error checking social account: %w", err)
	}
	if !isValid {
		return ErrAccountNotFound
	}
	return nil
}

func (s *postService) enqueue(ctx context.Context, post *models.Post) {
	if s.queue == nil || post.Status != models.PostStatusScheduled {
		return
	}
	if err := s.queue.EnqueuePost(ctx, post); err != nil {
		slog.Warn("error enqueuing post, the sweep will pick it up", "post_id", post.ID, "error", err)
	}
}

// storedInstant drops what Postgres cannot keep, so the enqueued payload and
// the stored row compare equal.
func storedInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func validatePost(postType, content string, mediaURLs, pollOptions []string) error {
	if content == "" {
		return fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	}
	if perr := platform.ValidateContent(postType, mediaURLs, pollOptions); perr != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, perr.Message)
	}
	return nil
}

// normalizeTimezone checks an IANA zone name. The zone never changes the stored instant.
func normalizeTimezone(tz string) (string, error) {
	if tz == "" {
		return "UTC", nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
	}
	return tz, nil
}
