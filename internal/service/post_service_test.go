package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/schedule"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	mu    sync.Mutex
	posts []*models.Post
	err   error
}

func (q *recordingQueue) EnqueuePost(ctx context.Context, post *models.Post) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.posts = append(q.posts, post)
	return q.err
}

func (f *fixture) postService(scope string, queue PostEnqueuer) PostService {
	return NewPostService(f.store.Posts(), f.store.SocialAccounts(), queue, PostOptions{
		ConflictScope: scope,
		Now:           func() time.Time { return testNow },
	})
}

func at(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	queue := &recordingQueue{}
	svc := f.postService(schedule.ConflictScopeGlobal, queue)

	post, conflict, err := svc.Create(context.Background(), "user-1", &transfer.PostCreation{
		SocialAccountID: "acc-1",
		PostType:        models.PostTypeImage,
		Content:         "  launch day  ",
		MediaURLs:       []string{"https://cdn.test/a.png"},
		ScheduledFor:    at(2 * time.Hour),
		Timezone:        "Europe/Berlin",
	})
	require.NoError(t, err)
	assert.False(t, conflict)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "launch day", post.Content)
	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, "Europe/Berlin", post.Timezone)
	assert.True(t, post.ScheduledFor.Equal(testNow.Add(2*time.Hour)))

	require.Len(t, queue.posts, 1)
	assert.Equal(t, post.ID, queue.posts[0].ID)

	stored := f.getPost(post.ID)
	assert.Equal(t, []string{"https://cdn.test/a.png"}, stored.MediaURLs)
}

func TestCreatePostDefaults(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	queue := &recordingQueue{}
	svc := f.postService("", queue)

	post, _, err := svc.Create(context.Background(), "user-1", &transfer.PostCreation{
		SocialAccountID: "acc-1",
		PostType:        models.PostTypeText,
		Content:         "draft idea",
		Draft:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Equal(t, "UTC", post.Timezone)
	assert.True(t, post.ScheduledFor.Equal(testNow))
	assert.Empty(t, queue.posts)
}

func TestCreatePostRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		pc   *transfer.PostCreation
	}{
		{"nil", nil},
		{"no account", &transfer.PostCreation{PostType: models.PostTypeText, Content: "x"}},
		{"empty content", &transfer.PostCreation{SocialAccountID: "acc-1", PostType: models.PostTypeText, Content: "   "}},
		{"poll with one option", &transfer.PostCreation{SocialAccountID: "acc-1", PostType: models.PostTypePoll, Content: "q", PollOptions: []string{"a"}}},
		{"poll with five options", &transfer.PostCreation{SocialAccountID: "acc-1", PostType: models.PostTypePoll, Content: "q", PollOptions: []string{"a", "b", "c", "d", "e"}}},
		{"image without media", &transfer.PostCreation{SocialAccountID: "acc-1", PostType: models.PostTypeImage, Content: "x"}},
		{"carousel too long", &transfer.PostCreation{SocialAccountID: "acc-1", PostType: models.PostTypeCarousel, Content: "x", MediaURLs: mediaURLs(11)}},
		{"unknown type", &transfer.PostCreation{SocialAccountID: "acc-1", PostType: "story", Content: "x"}},
		{"bad timezone", &transfer.PostCreation{SocialAccountID: "acc-1", PostType: models.PostTypeText, Content: "x", Timezone: "Mars/Olympus"}},
	}

	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	svc := f.postService("", nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Create(context.Background(), "user-1", tt.pc)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func mediaURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = "https://cdn.test/x.jpg"
	}
	return urls
}

func TestCreatePostForeignAccount(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	svc := f.postService("", nil)

	_, _, err := svc.Create(context.Background(), "user-2", &transfer.PostCreation{
		SocialAccountID: "acc-1",
		PostType:        models.PostTypeText,
		Content:         "x",
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCreatePostReportsConflictWithoutBlocking(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("existing", "acc-1", func(p *models.Post) { p.ScheduledFor = testNow.Add(time.Hour) })
	svc := f.postService("", nil)

	pc := func(d time.Duration) *transfer.PostCreation {
		return &transfer.PostCreation{SocialAccountID: "acc-1", PostType: models.PostTypeText, Content: "x", ScheduledFor: at(d)}
	}

	_, conflict, err := svc.Create(context.Background(), "user-1", pc(time.Hour+40*time.Minute))
	require.NoError(t, err)
	assert.False(t, conflict)

	post, conflict, err := svc.Create(context.Background(), "user-1", pc(time.Hour+10*time.Minute))
	require.NoError(t, err)
	assert.True(t, conflict)
	assert.NotNil(t, f.getPost(post.ID))
}

func TestConflictScope(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.account("acc-2", models.PlatformFacebook, func(sa *models.SocialAccount) { sa.AccountID = "page-other" })
	f.post("existing", "acc-1", func(p *models.Post) { p.ScheduledFor = testNow.Add(time.Hour) })

	check := &transfer.ConflictCheck{ScheduledFor: testNow.Add(time.Hour + 5*time.Minute), SocialAccountID: "acc-2"}

	conflict, err := f.postService(schedule.ConflictScopeGlobal, nil).CheckConflict(context.Background(), "user-1", check)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = f.postService(schedule.ConflictScopeAccount, nil).CheckConflict(context.Background(), "user-1", check)
	require.NoError(t, err)
	assert.False(t, conflict)

	excluded := *check
	excluded.ExcludePostID = "existing"
	conflict, err = f.postService(schedule.ConflictScopeGlobal, nil).CheckConflict(context.Background(), "user-1", &excluded)
	require.NoError(t, err)
	assert.False(t, conflict)

	_, err = f.postService("", nil).CheckConflict(context.Background(), "user-1", &transfer.ConflictCheck{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("a", "acc-1", func(p *models.Post) { p.ScheduledFor = testNow.Add(time.Hour) })
	f.post("b", "acc-1", func(p *models.Post) { p.ScheduledFor = testNow.Add(3 * time.Hour) })
	queue := &recordingQueue{}
	svc := f.postService("", queue)

	_, err := svc.Reschedule(context.Background(), "user-1", "b", testNow.Add(time.Hour+15*time.Minute))
	assert.ErrorIs(t, err, ErrScheduleConflict)
	assert.True(t, f.getPost("b").ScheduledFor.Equal(testNow.Add(3*time.Hour)))

	// moving a post within its own window is not a conflict with itself
	moved, err := svc.Reschedule(context.Background(), "user-1", "b", testNow.Add(3*time.Hour+5*time.Minute))
	require.NoError(t, err)
	assert.True(t, moved.ScheduledFor.Equal(testNow.Add(3*time.Hour+5*time.Minute)))
	assert.Equal(t, models.PostStatusScheduled, moved.Status)
	require.Len(t, queue.posts, 1)

	_, err = svc.Reschedule(context.Background(), "user-1", "b", time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLockedPostsCannotChange(t *testing.T) {
	for _, status := range []string{models.PostStatusPending, models.PostStatusPublished} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			f.account("acc-1", models.PlatformFacebook)
			f.post("post-1", "acc-1", func(p *models.Post) { p.Status = status })
			svc := f.postService("", nil)

			content := "changed"
			_, err := svc.Update(context.Background(), "user-1", "post-1", &transfer.PostUpdate{Content: &content})
			assert.ErrorIs(t, err, ErrPostLocked)

			_, err = svc.Reschedule(context.Background(), "user-1", "post-1", testNow.Add(5*time.Hour))
			assert.ErrorIs(t, err, ErrPostLocked)

			assert.Equal(t, "hello", f.getPost("post-1").Content)
		})
	}
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("post-1", "acc-1", func(p *models.Post) { p.Status = models.PostStatusFailed })
	svc := f.postService("", nil)

	content := " fixed copy "
	tags := []string{"go"}
	post, err := svc.Update(context.Background(), "user-1", "post-1", &transfer.PostUpdate{Content: &content, Hashtags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "fixed copy", post.Content)
	assert.Equal(t, []string{"go"}, post.Hashtags)
	assert.Equal(t, models.PostStatusFailed, post.Status)

	media := []string{"https://cdn.test/a.png"}
	_, err = svc.Update(context.Background(), "user-1", "post-1", &transfer.PostUpdate{MediaURLs: &media})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(context.Background(), "user-2", "post-1", &transfer.PostUpdate{Content: &content})
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestRemovePost(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	f.post("pending", "acc-1", func(p *models.Post) { p.Status = models.PostStatusPending })
	f.post("published", "acc-1", func(p *models.Post) { p.Status = models.PostStatusPublished })
	f.post("failed", "acc-1", func(p *models.Post) { p.Status = models.PostStatusFailed })
	svc := f.postService("", nil)

	assert.ErrorIs(t, svc.Remove(context.Background(), "user-1", "pending"), ErrPostLocked)
	assert.ErrorIs(t, svc.Remove(context.Background(), "user-1", "published"), ErrPostLocked)
	assert.Equal(t, models.PostStatusPublished, f.getPost("published").Status)

	require.NoError(t, svc.Remove(context.Background(), "user-1", "failed"))
	assert.ErrorIs(t, svc.Remove(context.Background(), "user-1", "failed"), ErrPostNotFound)
}

func TestCreatePostStoresMicrosecondInstants(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	queue := &recordingQueue{}
	clock := testNow.Add(123456789 * time.Nanosecond)
	svc := NewPostService(f.store.Posts(), f.store.SocialAccounts(), queue, PostOptions{
		Now: func() time.Time { return clock },
	})

	post, _, err := svc.Create(context.Background(), "user-1", &transfer.PostCreation{
		SocialAccountID: "acc-1",
		PostType:        models.PostTypeText,
		Content:         "right now",
	})
	require.NoError(t, err)
	assert.True(t, post.ScheduledFor.Equal(testNow.Add(123456*time.Microsecond)))

	explicit := clock.Add(time.Hour)
	later, _, err := svc.Create(context.Background(), "user-1", &transfer.PostCreation{
		SocialAccountID: "acc-1",
		PostType:        models.PostTypeText,
		Content:         "in an hour",
		ScheduledFor:    &explicit,
	})
	require.NoError(t, err)
	assert.Zero(t, later.ScheduledFor.Nanosecond()%1000)

	moved, err := svc.Reschedule(context.Background(), "user-1", later.ID, explicit.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, moved.ScheduledFor.Nanosecond()%1000)

	require.Len(t, queue.posts, 3)
	for _, p := range queue.posts {
		assert.Zero(t, p.ScheduledFor.Nanosecond()%1000, p.ID)
	}
}

func TestListPosts(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	svc := f.postService("", nil)

	posts, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)

	f.post("post-1", "acc-1")
	posts, err = svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestEnqueueFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t)
	f.account("acc-1", models.PlatformFacebook)
	queue := &recordingQueue{err: errors.New("redis unavailable")}
	svc := f.postService("", queue)

	post, _, err := svc.Create(context.Background(), "user-1", &transfer.PostCreation{
		SocialAccountID: "acc-1",
		PostType:        models.PostTypeText,
		Content:         "x",
		ScheduledFor:    at(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, f.getPost(post.ID).Status)
}
