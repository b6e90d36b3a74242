package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/platform"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchPublishes(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1", func(p *models.Post) {
		p.Hashtags = []string{"go", "#news"}
	})

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	require.True(t, result.Success(), result.Error)
	assert.Equal(t, models.PostStatusPublished, result.Status)
	assert.Equal(t, "ext-post-1", result.ExternalID)
	assert.Equal(t, 1, result.Attempts)

	resp := result.Response()
	assert.True(t, resp.Success)
	assert.Equal(t, "ext-post-1", resp.PostID)

	post := f.getPost("post-1")
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.Equal(t, "ext-post-1", post.ExternalPostID)
	require.NotNil(t, post.PublishedAt)
	assert.True(t, post.PublishedAt.Equal(testNow))

	require.Len(t, f.adapter.reqs, 1)
	req := f.adapter.reqs[0]
	assert.Equal(t, "hello\n\n#go #news", req.Text)
	assert.Equal(t, "plain-token-acc-1", req.Credentials.AccessToken)
	assert.Equal(t, "page-acc-1", req.Credentials.AccountID)

	history, err := f.store.PostingHistory().ListByPostID(context.Background(), "post-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Attempt)
	assert.Empty(t, history[0].ErrorKind)
}

func TestDispatchPostNotFound(t *testing.T) {
	f := newFixture(t)

	result := f.dispatch.Dispatch(context.Background(), "missing")
	assert.False(t, result.Success())
	assert.Equal(t, "post not found", result.Response().Error)
	assert.Zero(t, f.adapter.callCount())
}

func TestDispatchRefusesTerminalPosts(t *testing.T) {
	for _, status := range []string{models.PostStatusPublished, models.PostStatusFailed, models.PostStatusPending} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			f.account("acc-1", models.PlatformFacebook)
			f.post("post-1", "acc-1", func(p *models.Post) { p.Status = status })

			result := f.dispatch.Dispatch(context.Background(), "post-1")
			assert.False(t, result.Success())
			assert.Equal(t, "post is not claimable", result.Error)
			assert.Equal(t, "status: "+status, result.Details)
			assert.Zero(t, f.adapter.callCount())
			assert.Equal(t, status, f.getPost("post-1").Status)
		})
	}
}

func TestDispatchDraftPublishesImmediately(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1", func(p *models.Post) {
		p.Status = models.PostStatusDraft
		p.ScheduledFor = testNow.Add(48 * time.Hour)
	})

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	require.True(t, result.Success(), result.Error)
	assert.Equal(t, models.PostStatusPublished, f.getPost("post-1").Status)
}

func TestDispatchExpiredToken(t *testing.T) {
	f := newFixture(t)
	yesterday := testNow.Add(-24 * time.Hour)
	f.account("acc-1", models.PlatformFacebook, func(sa *models.SocialAccount) {
		sa.TokenExpiresAt = &yesterday
	})
	f.post("post-1", "acc-1")

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.False(t, result.Success())
	assert.Equal(t, models.ErrorKindTokenExpired, result.Kind)
	assert.Zero(t, f.adapter.callCount())

	post := f.getPost("post-1")
	assert.Equal(t, models.PostStatusFailed, post.Status)
	assert.Equal(t, string(models.ErrorKindTokenExpired), post.LastErrorKind)
	assert.True(t, f.getAccount("acc-1").RequiresReconnect)
}

func TestDispatchAccountAlreadyFlagged(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook, func(sa *models.SocialAccount) {
		sa.RequiresReconnect = true
	})
	f.post("post-1", "acc-1")

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.Equal(t, models.ErrorKindTokenExpired, result.Kind)
	assert.Zero(t, f.adapter.callCount())
}

func TestDispatchAuthExpiredFlagsAccount(t *testing.T) {
	f := newFixture(t)
	f.adapter.always = platform.NewError(models.ErrorKindAuthExpired, "session has been invalidated")
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1")

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.Equal(t, models.ErrorKindTokenExpired, result.Kind)
	assert.Equal(t, "session has been invalidated", result.Error)
	assert.Equal(t, 1, f.adapter.callCount())

	account := f.getAccount("acc-1")
	assert.True(t, account.RequiresReconnect)
	require.NotNil(t, account.LastError)
	assert.Equal(t, "session has been invalidated", *account.LastError)
}

func TestDispatchRetriesRateLimitsUpToThreeAttempts(t *testing.T) {
	f := newFixture(t)
	f.adapter.always = platform.NewError(models.ErrorKindRateLimited, "too many calls")
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1")

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.Equal(t, models.ErrorKindRateLimited, result.Kind)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "gave up after 3 attempts", result.Details)
	assert.Equal(t, 3, f.adapter.callCount())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeps.all())

	post := f.getPost("post-1")
	assert.Equal(t, models.PostStatusFailed, post.Status)
	assert.Equal(t, string(models.ErrorKindRateLimited), post.LastErrorKind)

	history, err := f.store.PostingHistory().ListByPostID(context.Background(), "post-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, h := range history {
		assert.Equal(t, i+1, h.Attempt)
		assert.Equal(t, string(models.ErrorKindRateLimited), h.ErrorKind)
	}
}

func TestDispatchHonorsRetryAfter(t *testing.T) {
	f := newFixture(t)
	limited := platform.NewError(models.ErrorKindRateLimited, "slow down")
	limited.RetryAfter = 7 * time.Second
	f.adapter.script = []error{limited}
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1")

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	require.True(t, result.Success(), result.Error)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []time.Duration{7 * time.Second}, f.sleeps.all())
}

func TestDispatchDoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		kind models.ErrorKind
	}{
		{"validation", models.ErrorKindValidation},
		{"unknown", models.ErrorKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.adapter.always = platform.NewError(tt.kind, "rejected")
			f.account("acc-1", models.PlatformFacebook)
			f.post("post-1", "acc-1")

			result := f.dispatch.Dispatch(context.Background(), "post-1")
			assert.Equal(t, tt.kind, result.Kind)
			assert.Equal(t, 1, f.adapter.callCount())
			assert.Empty(t, f.sleeps.all())
			assert.Empty(t, result.Details)
		})
	}
}

func TestDispatchTransientThenSuccess(t *testing.T) {
	f := newFixture(t)
	f.adapter.script = []error{
		platform.NewError(models.ErrorKindTransientNetwork, "connection reset"),
		platform.NewError(models.ErrorKindTransientNetwork, "connection reset"),
	}
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1")

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	require.True(t, result.Success(), result.Error)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, models.PostStatusPublished, f.getPost("post-1").Status)
}

func TestDispatchTimesOutSlowPlatform(t *testing.T) {
	f := newFixture(t)
	f.adapter.delay = time.Second
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1")

	dispatch := f.newDispatch(DispatchOptions{Timeout: 10 * time.Millisecond})
	result := dispatch.Dispatch(context.Background(), "post-1")
	assert.Equal(t, models.ErrorKindTransientNetwork, result.Kind)
	assert.Equal(t, 3, f.adapter.callCount())
	assert.Equal(t, models.PostStatusFailed, f.getPost("post-1").Status)
}

func TestDispatchLocalValidation(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1", func(p *models.Post) {
		p.PostType = models.PostTypeImage
		p.MediaURLs = nil
	})

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.Equal(t, models.ErrorKindValidation, result.Kind)
	assert.Zero(t, f.adapter.callCount())
	assert.Equal(t, models.PostStatusFailed, f.getPost("post-1").Status)
}

func TestDispatchUnreadableCredentials(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook, func(sa *models.SocialAccount) {
		sa.AccessToken = "not-a-sealed-token"
	})
	f.post("post-1", "acc-1")

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.Equal(t, models.ErrorKindTokenExpired, result.Kind)
	assert.Zero(t, f.adapter.callCount())
	assert.True(t, f.getAccount("acc-1").RequiresReconnect)
}

func TestDispatchUnsupportedPlatform(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformLinkedIn)
	f.post("post-1", "acc-1")

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.Equal(t, models.ErrorKindValidation, result.Kind)
	assert.Contains(t, result.Error, "linkedin")
}

func TestDispatchConcurrentCallsPublishOnce(t *testing.T) {
	f := newFixture(t)
	f.adapter.release = make(chan struct{})
	f.adapter.started = make(chan struct{}, 1)
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1")

	first := make(chan *DispatchResult, 1)
	go func() { first <- f.dispatch.Dispatch(context.Background(), "post-1") }()

	<-f.adapter.started
	assert.Equal(t, models.PostStatusPending, f.getPost("post-1").Status)

	second := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.Equal(t, "post is not claimable", second.Error)
	assert.Equal(t, "status: pending", second.Details)

	close(f.adapter.release)
	result := <-first
	require.True(t, result.Success(), result.Error)
	assert.Equal(t, 1, f.adapter.callCount())
}

func TestDispatchSerializesCallsPerAccount(t *testing.T) {
	f := newFixture(t)
	f.adapter.delay = 5 * time.Millisecond
	f.account("acc-1", models.PlatformFacebook)
	for i := 0; i < 5; i++ {
		f.post(fmt.Sprintf("post-%d", i), "acc-1")
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			f.dispatch.Dispatch(context.Background(), id)
		}(fmt.Sprintf("post-%d", i))
	}
	wg.Wait()

	assert.Equal(t, 5, f.adapter.callCount())
	assert.Equal(t, 1, f.adapter.maxInFlight)
}

func TestRetryReentersFailedPost(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1", func(p *models.Post) {
		p.Status = models.PostStatusFailed
		p.LastErrorKind = string(models.ErrorKindRateLimited)
	})

	result := f.dispatch.Retry(context.Background(), "post-1")
	require.True(t, result.Success(), result.Error)

	post := f.getPost("post-1")
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.Empty(t, post.LastErrorKind)

	again := f.dispatch.Retry(context.Background(), "post-1")
	assert.Equal(t, "post is not claimable", again.Error)
	assert.Equal(t, 1, f.adapter.callCount())
}

// racingPosts lets a test act on a post right around the dispatcher's claim.
type racingPosts struct {
	repository.PostRepository
	onClaim func(ctx context.Context, id string, from []string) (bool, bool)
}

func (r *racingPosts) Claim(ctx context.Context, id string, from []string) (bool, error) {
	if r.onClaim != nil {
		if claimed, handled := r.onClaim(ctx, id, from); handled {
			return claimed, nil
		}
	}
	return r.PostRepository.Claim(ctx, id, from)
}

func (f *fixture) dispatchWith(posts repository.PostRepository) DispatchService {
	return NewDispatchService(posts, f.store.SocialAccounts(), f.store.PostingHistory(), f.tokens, f.registry, f.cipher, f.metrics,
		DispatchOptions{Timeout: time.Second, Sleep: f.sleeps.sleep, Now: func() time.Time { return testNow }})
}

func TestDispatchPublishesContentEditedBeforeClaim(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1")

	edited := false
	posts := &racingPosts{PostRepository: f.store.Posts()}
	posts.onClaim = func(ctx context.Context, id string, from []string) (bool, bool) {
		if edited {
			return false, false
		}
		edited = true
		p, err := posts.PostRepository.GetByID(ctx, id)
		require.NoError(t, err)
		p.Content = "edited just in time"
		require.NoError(t, posts.PostRepository.Update(ctx, p))
		return false, false
	}

	result := f.dispatchWith(posts).Dispatch(context.Background(), "post-1")
	require.True(t, result.Success(), result.Error)

	require.Len(t, f.adapter.reqs, 1)
	assert.Equal(t, "edited just in time", f.adapter.reqs[0].Text)
	assert.Equal(t, "edited just in time", f.getPost("post-1").Content)
}

func TestDispatchStopsWhenClaimWasReaped(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1")

	posts := &racingPosts{PostRepository: f.store.Posts()}
	posts.onClaim = func(ctx context.Context, id string, from []string) (bool, bool) {
		if len(from) != 1 || from[0] != models.PostStatusPending {
			return false, false
		}
		_, err := posts.PostRepository.FailStale(ctx, time.Now().Add(time.Hour), models.ErrorKindTransientNetwork, "publish interrupted")
		require.NoError(t, err)
		return false, true
	}

	result := f.dispatchWith(posts).Dispatch(context.Background(), "post-1")
	assert.Equal(t, "publish interrupted", result.Error)
	assert.Zero(t, f.adapter.callCount())
	assert.Equal(t, models.PostStatusFailed, f.getPost("post-1").Status)
}

func TestAttemptTimeoutScalesWithPlatformCalls(t *testing.T) {
	tests := []struct {
		name     string
		postType string
		media    int
		want     time.Duration
	}{
		{"text", models.PostTypeText, 0, 15 * time.Second},
		{"poll", models.PostTypePoll, 0, 15 * time.Second},
		{"image", models.PostTypeImage, 1, 30 * time.Second},
		{"video", models.PostTypeVideo, 1, time.Minute},
		{"carousel of ten", models.PostTypeCarousel, 10, 165 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &platform.PublishRequest{PostType: tt.postType, MediaURLs: mediaURLs(tt.media)}
			assert.Equal(t, tt.want, attemptTimeout(15*time.Second, req))
		})
	}
}

func TestStaleClaimAfterCoversSlowestDispatch(t *testing.T) {
	budget := StaleClaimAfter(3, 15*time.Second, time.Second)
	slowest := 3*attemptTimeout(15*time.Second, &platform.PublishRequest{
		PostType:  models.PostTypeCarousel,
		MediaURLs: mediaURLs(platform.MaxCarouselItems),
	}) + 2*maxRetryAfter
	assert.Greater(t, budget, slowest)
	assert.Equal(t, 11*time.Minute+15*time.Second, budget)
}

func TestDispatchCarouselStopsAtFailedItem(t *testing.T) {
	var feedCalls, photoCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/feed"):
			feedCalls.Add(1)
			fmt.Fprint(w, `{"id":"page_1"}`)
		case strings.HasSuffix(r.URL.Path, "/photos"):
			n := photoCalls.Add(1)
			// the first upload of each attempt succeeds, the second is unavailable
			if n%2 == 0 {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, `{"error":{"message":"Service temporarily unavailable","code":2}}`)
				return
			}
			fmt.Fprintf(w, `{"id":"photo-%d"}`, n)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := newFixture(t, platform.NewFacebook(srv.Client(), srv.URL))
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1", func(p *models.Post) {
		p.PostType = models.PostTypeCarousel
		p.MediaURLs = []string{"https://cdn.test/1.jpg", "https://cdn.test/2.jpg", "https://cdn.test/3.jpg"}
	})

	result := f.dispatch.Dispatch(context.Background(), "post-1")
	assert.False(t, result.Success())
	assert.Equal(t, models.ErrorKindTransientNetwork, result.Kind)
	assert.Equal(t, 3, result.Attempts)
	assert.Zero(t, feedCalls.Load())
	assert.Equal(t, int32(6), photoCalls.Load())

	post := f.getPost("post-1")
	assert.Equal(t, models.PostStatusFailed, post.Status)
	assert.Empty(t, post.ExternalPostID)
}

func TestComposeText(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		hashtags []string
		want     string
	}{
		{"no tags", "hello", nil, "hello"},
		{"tags", "hello", []string{"go", "news"}, "hello\n\n#go #news"},
		{"hash prefix kept once", "hello", []string{"#go"}, "hello\n\n#go"},
		{"blank tags dropped", "hello ", []string{" ", "go"}, "hello\n\n#go"},
		{"only blank tags", "hello", []string{""}, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeText(tt.content, tt.hashtags))
		})
	}
}
