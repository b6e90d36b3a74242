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
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/pkg/utils"
)

// Dispatch errors that are not platform failures.
const (
	DispatchPostNotFound     = "post not found"
	DispatchPostNotClaimable = "post is not claimable"
	DispatchInterrupted      = "publish interrupted"
)

// maxRetryAfter caps a platform Retry-After so a claimed post cannot sit
// pending for longer than the stale-claim budget.
const maxRetryAfter = time.Minute

var (
	dispatchableStatuses = []string{models.PostStatusDraft, models.PostStatusScheduled}
	retryableStatuses    = []string{models.PostStatusFailed}
)

// DispatchResult is the outcome of one dispatch. It never carries a Go error:
// every failure is already stored on the post.
type DispatchResult struct {
	PostID     string
	Status     string
	ExternalID string
	Kind       models.ErrorKind
	Error      string
	Details    string
	Attempts   int
}

func (r *DispatchResult) Success() bool {
	return r.Error == ""
}

func (r *DispatchResult) Response() transfer.DispatchResponse {
	if r.Success() {
		return transfer.DispatchResponse{Success: true, PostID: r.ExternalID}
	}
	return transfer.DispatchResponse{Error: r.Error, Kind: string(r.Kind), Details: r.Details}
}

// DispatchService moves one post from draft/scheduled through pending to
// published or failed.
type DispatchService interface {
	Dispatch(ctx context.Context, postID string) *DispatchResult
	// Retry re-enters a failed post. It is never called automatically.
	Retry(ctx context.Context, postID string) *DispatchResult
}

type DispatchOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Timeout bounds one platform call. An attempt gets one Timeout per call
	// the post needs, see attemptTimeout.
	Timeout time.Duration
	// Sleep and Now are replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

type dispatchService struct {
	posts    repository.PostRepository
	accounts repository.SocialAccountRepository
	history  repository.PostingHistoryRepository
	tokens   TokenService
	registry *platform.Registry
	cipher   *utils.TokenCipher
	metrics  Metrics
	opts     DispatchOptions
	locks    *keyedMutex
}

func NewDispatchService(
	posts repository.PostRepository,
	accounts repository.SocialAccountRepository,
	history repository.PostingHistoryRepository,
	tokens TokenService,
	registry *platform.Registry,
	cipher *utils.TokenCipher,
	metrics Metrics,
	opts DispatchOptions) DispatchService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = utils.SleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &dispatchService{
		posts:    posts,
		accounts: accounts,
		history:  history,
		tokens:   tokens,
		registry: registry,
		cipher:   cipher,
		metrics:  metrics,
		opts:     opts,
		locks:    newKeyedMutex(),
	}
}

func (s *dispatchService) Dispatch(ctx context.Context, postID string) *DispatchResult {
	return s.run(ctx, postID, dispatchableStatuses)
}

func (s *dispatchService) Retry(ctx context.Context, postID string) *DispatchResult {
	return s.run(ctx, postID, retryableStatuses)
}

func (s *dispatchService) run(ctx context.Context, postID string, from []string) *DispatchResult {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return &DispatchResult{PostID: postID, Error: "error loading post", Details: err.Error()}
	}
	if post == nil {
		return &DispatchResult{PostID: postID, Error: DispatchPostNotFound}
	}

	claimed, err := s.posts.Claim(ctx, postID, from)
	if err != nil {
		return &DispatchResult{PostID: postID, Status: post.Status, Error: "error claiming post", Details: err.Error()}
	}
	if !claimed {
		status := post.Status
		if current, err := s.posts.GetByID(ctx, postID); err == nil && current != nil {
			status = current.Status
		}
		return &DispatchResult{PostID: postID, Status: status, Error: DispatchPostNotClaimable, Details: "status: " + status}
	}

	// The row may have been edited between the first read and the claim.
	claimedPost, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return s.fail(ctx, post, nil, platform.NewError(models.ErrorKindTransientNetwork, "error reloading post: %v", err), 0)
	}
	if claimedPost == nil {
		return &DispatchResult{PostID: postID, Error: DispatchPostNotFound}
	}

	return s.publish(ctx, claimedPost)
}

// publish runs a claimed post to a terminal state.
func (s *dispatchService) publish(ctx context.Context, post *models.Post) *DispatchResult {
	account, err := s.accounts.GetByID(ctx, post.SocialAccountID)
	if err != nil {
		return s.fail(ctx, post, nil, platform.NewError(models.ErrorKindTransientNetwork, "error loading social account: %v", err), 0)
	}
	if account == nil {
		return s.fail(ctx, post, nil, platform.NewError(models.ErrorKindValidation, "social account not found"), 0)
	}

	state, err := s.tokens.CheckAndRefresh(ctx, account)
	if err != nil {
		slog.Error(err.Error())
	}
	if state == TokenRequiresReconnect {
		return s.fail(ctx, post, account, platform.NewError(models.ErrorKindTokenExpired, "account requires reconnect"), 0)
	}

	req, err := s.buildRequest(post, account)
	if err != nil {
		slog.Warn("stored credentials could not be decrypted", "account_id", account.ID, "error", err)
		if err := s.tokens.MarkReconnect(ctx, account, "stored credentials are unreadable"); err != nil {
			slog.Error(err.Error())
		}
		return s.fail(ctx, post, account, platform.NewError(models.ErrorKindTokenExpired, "stored credentials are unreadable"), 0)
	}

	if err := platform.Validate(req); err != nil {
		return s.fail(ctx, post, account, platform.AsError(err), 0)
	}

	adapter, ok := s.registry.Get(account.Platform)
	if !ok {
		return s.fail(ctx, post, account, platform.NewError(models.ErrorKindValidation, "unsupported platform %q", account.Platform), 0)
	}

	unlock := s.locks.Lock(account.ID)
	defer unlock()

	// Waiting for the account lock must not count against the stale-claim
	// budget. Re-claiming a pending post refreshes its updated_at.
	stillClaimed, err := s.posts.Claim(ctx, post.ID, []string{models.PostStatusPending})
	if err != nil {
		slog.Error("error refreshing post claim", "post_id", post.ID, "error", err)
	} else if !stillClaimed {
		return &DispatchResult{PostID: post.ID, Status: models.PostStatusFailed, Kind: models.ErrorKindTransientNetwork, Error: DispatchInterrupted}
	}

	timeout := attemptTimeout(s.opts.Timeout, req)

	var result *platform.Result
	policy := utils.RetryPolicy{
		MaxAttempts: s.opts.MaxAttempts,
		Backoff:     utils.ExponentialBackoff(s.opts.BaseDelay),
		Classify: func(err error) (bool, time.Duration) {
			perr := platform.AsError(err)
			return perr.Kind.Retryable(), min(perr.RetryAfter, maxRetryAfter)
		},
		Sleep: s.opts.Sleep,
	}

	attempts, err := utils.Retry(ctx, policy, func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := s.opts.Now()
		res, err := adapter.Publish(attemptCtx, req)
		perr := platform.AsError(err)
		s.recordAttempt(ctx, post, account, attempt, perr, s.opts.Now().Sub(start))
		if perr != nil {
			return perr
		}
		result = res
		return nil
	})
	if err != nil {
		return s.fail(ctx, post, account, platform.AsError(err), attempts)
	}

	now := s.opts.Now()
	s.persist(ctx, post.ID, func(ctx context.Context) error {
		return s.posts.MarkPublished(ctx, post.ID, result.ExternalID, now)
	})
	s.metrics.DispatchFinished(account.Platform, models.PostStatusPublished, "")
	slog.Info("post published", "post_id", post.ID, "platform", account.Platform, "external_id", result.ExternalID, "attempts", attempts)

	return &DispatchResult{
		PostID:     post.ID,
		Status:     models.PostStatusPublished,
		ExternalID: result.ExternalID,
		Attempts:   attempts,
	}
}

// attemptTimeout gives an attempt one call budget per platform request it
// makes: every carousel item is an upload, and video containers are polled.
func attemptTimeout(perCall time.Duration, req *platform.PublishRequest) time.Duration {
	calls := 1
	switch req.PostType {
	case models.PostTypeCarousel:
		calls = len(req.MediaURLs) + 1
	case models.PostTypeImage:
		calls = 2
	case models.PostTypeVideo:
		calls = 4
	}
	return perCall * time.Duration(calls)
}

// StaleClaimAfter is how long a post may stay pending before the sweep
// assumes its dispatcher died. It covers the largest attempt timeout, the
// longest backoff or Retry-After between attempts, and a minute for the
// terminal write.
func StaleClaimAfter(maxAttempts int, perCall, baseDelay time.Duration) time.Duration {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	longestAttempt := perCall * time.Duration(platform.MaxCarouselItems+1)
	longestWait := max(utils.ExponentialBackoff(baseDelay)(maxAttempts), maxRetryAfter)
	return time.Duration(maxAttempts)*longestAttempt + time.Duration(maxAttempts-1)*longestWait + time.Minute
}

func (s *dispatchService) buildRequest(post *models.Post, account *models.SocialAccount) (*platform.PublishRequest, error) {
	accessToken, err := s.cipher.Open(account.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	pageToken, err := s.cipher.Open(account.PageAccessToken)
	if err != nil {
		return nil, fmt.Errorf("page access token: %w", err)
	}

	return &platform.PublishRequest{
		PostID:      post.ID,
		PostType:    post.PostType,
		Text:        ComposeText(post.Content, post.Hashtags),
		MediaURLs:   post.MediaURLs,
		PollOptions: post.PollOptions,
		Credentials: platform.Credentials{
			AccountID:       account.AccountID,
			AccessToken:     accessToken,
			PageAccessToken: pageToken,
		},
	}, nil
}

// ComposeText appends hashtags to the content as #tag tokens.
func ComposeText(content string, hashtags []string) string {
	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.TrimLeft(strings.TrimSpace(h), "#")
		if h == "" {
			continue
		}
		tags = append(tags, "#"+h)
	}
	if len(tags) == 0 {
		return content
	}
	return strings.TrimRight(content, " \n") + "\n\n" + strings.Join(tags, " ")
}

// fail stores the terminal failure. Auth failures flag the account and are
// stored as TOKEN_EXPIRED.
func (s *dispatchService) fail(ctx context.Context, post *models.Post, account *models.SocialAccount, perr *platform.Error, attempts int) *DispatchResult {
	kind := perr.Kind
	platformName := ""
	if account != nil {
		platformName = account.Platform
	}

	switch kind {
	case models.ErrorKindAuthExpired:
		kind = models.ErrorKindTokenExpired
		if account != nil {
			if err := s.tokens.MarkReconnect(ctx, account, perr.Message); err != nil {
				slog.Error(err.Error())
			}
		}
	case models.ErrorKindUnknown:
		slog.Error("platform returned an unrecognized error",
			"post_id", post.ID,
			"platform", platformName,
			"status", perr.StatusCode,
			"message", perr.Message,
			"body", perr.Body,
		)
	default:
		slog.Warn("post failed", "post_id", post.ID, "platform", platformName, "kind", kind, "error", perr.Message)
	}

	s.persist(ctx, post.ID, func(ctx context.Context) error {
		return s.posts.MarkFailed(ctx, post.ID, kind, perr.Message)
	})
	s.metrics.DispatchFinished(platformName, models.PostStatusFailed, string(kind))

	result := &DispatchResult{
		PostID:   post.ID,
		Status:   models.PostStatusFailed,
		Kind:     kind,
		Error:    perr.Message,
		Attempts: attempts,
	}
	if attempts > 1 {
		result.Details = fmt.Sprintf("gave up after %d attempts", attempts)
	}
	return result
}

func (s *dispatchService) recordAttempt(ctx context.Context, post *models.Post, account *models.SocialAccount, attempt int, perr *platform.Error, took time.Duration) {
	entry := &models.PostingHistory{
		PostID:    post.ID,
		AccountID: account.ID,
		Attempt:   attempt,
	}
	if perr != nil {
		entry.ErrorKind = string(perr.Kind)
		entry.ErrorMessage = perr.Error()
	}
	if _, err := s.history.Create(context.WithoutCancel(ctx), entry); err != nil {
		slog.Error("error writing posting history", "post_id", post.ID, "error", err)
	}

	kind := ""
	if perr != nil {
		kind = string(perr.Kind)
	}
	s.metrics.PublishAttempt(account.Platform, kind, took)
}

// persist retries a terminal status write; a post must not be left pending
// once the platform outcome is known.
func (s *dispatchService) persist(ctx context.Context, postID string, write func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	policy := utils.RetryPolicy{
		MaxAttempts: s.opts.MaxAttempts,
		Backoff:     utils.ExponentialBackoff(s.opts.BaseDelay),
		Classify:    utils.RetryAll,
		Sleep:       s.opts.Sleep,
	}
	attempts, err := utils.Retry(ctx, policy, func(ctx context.Context, _ int) error {
		return write(ctx)
	})
	if err != nil {
		slog.Error("error storing post status", "post_id", postID, "attempts", attempts, "error", err)
	}
}
