// Package memory implements the repository interfaces in process memory.
// It backs the tests and a server started without Postgres or Redis.
package memory

import (
	"sync"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
)

// Store holds every table. Records are copied in and out so callers never
// share memory with the store.
type Store struct {
	mu       sync.RWMutex
	posts    map[string]*models.Post
	rules    map[string]*models.RecurringPost
	accounts map[string]*models.SocialAccount
	history  []*models.PostingHistory
	drafts   map[string]*models.Draft
	now      func() time.Time
}

func New() *Store {
	return &Store{
		posts:    make(map[string]*models.Post),
		rules:    make(map[string]*models.RecurringPost),
		accounts: make(map[string]*models.SocialAccount),
		drafts:   make(map[string]*models.Draft),
		now:      time.Now,
	}
}

func (s *Store) Posts() repository.PostRepository {
	return &postRepository{s: s}
}

func (s *Store) RecurringPosts() repository.RecurringPostRepository {
	return &recurringPostRepository{s: s}
}

func (s *Store) SocialAccounts() repository.SocialAccountRepository {
	return &socialAccountRepository{s: s}
}

func (s *Store) PostingHistory() repository.PostingHistoryRepository {
	return &postingHistoryRepository{s: s}
}

func (s *Store) Drafts() repository.DraftRepository {
	return &draftRepository{s: s}
}

func copyPost(p *models.Post) *models.Post {
	c := *p
	c.MediaURLs = append([]string(nil), p.MediaURLs...)
	c.PollOptions = append([]string(nil), p.PollOptions...)
	c.Hashtags = append([]string(nil), p.Hashtags...)
	if p.RecurringPostID != nil {
		id := *p.RecurringPostID
		c.RecurringPostID = &id
	}
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		c.PublishedAt = &at
	}
	return &c
}

func copyRule(r *models.RecurringPost) *models.RecurringPost {
	c := *r
	c.MediaURLs = append([]string(nil), r.MediaURLs...)
	c.PollOptions = append([]string(nil), r.PollOptions...)
	c.Hashtags = append([]string(nil), r.Hashtags...)
	c.StartDate = copyTime(r.StartDate)
	c.EndDate = copyTime(r.EndDate)
	c.LastPostedAt = copyTime(r.LastPostedAt)
	return &c
}

func copyAccount(a *models.SocialAccount) *models.SocialAccount {
	c := *a
	c.TokenExpiresAt = copyTime(a.TokenExpiresAt)
	if a.LastError != nil {
		msg := *a.LastError
		c.LastError = &msg
	}
	return &c
}

func copyDraft(d *models.Draft) *models.Draft {
	c := *d
	c.MediaURLs = append([]string(nil), d.MediaURLs...)
	c.PollOptions = append([]string(nil), d.PollOptions...)
	c.Hashtags = append([]string(nil), d.Hashtags...)
	c.ScheduledFor = copyTime(d.ScheduledFor)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
