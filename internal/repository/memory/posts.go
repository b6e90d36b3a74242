package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
)

type postRepository struct {
	s *Store
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[post.ID]; ok {
		return repository.ErrDuplicate
	}
	if post.RecurringPostID != nil {
		for _, p := range r.s.posts {
			if p.RecurringPostID != nil && *p.RecurringPostID == *post.RecurringPostID && p.ScheduledFor.Equal(post.ScheduledFor) {
				return repository.ErrDuplicate
			}
		}
	}

	now := r.s.now()
	post.ScheduledFor = post.ScheduledFor.UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	r.s.posts[post.ID] = copyPost(post)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, nil
	}
	return copyPost(p), nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Post, error) {
	return r.filter(func(p *models.Post) bool { return p.UserID == userID }, 0), nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[postID]
	return ok && p.UserID == userID, nil
}

func (r *postRepository) ScheduledTimes(ctx context.Context, userID, accountID, excludeID string) ([]time.Time, error) {
	posts := r.filter(func(p *models.Post) bool {
		return p.UserID == userID &&
			p.Status == models.PostStatusScheduled &&
			(accountID == "" || p.SocialAccountID == accountID) &&
			p.ID != excludeID
	}, 0)

	times := make([]time.Time, 0, len(posts))
	for _, p := range posts {
		times = append(times, p.ScheduledFor)
	}
	return times, nil
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	return r.filter(func(p *models.Post) bool {
		return p.Status == models.PostStatusScheduled && !p.ScheduledFor.After(now)
	}, limit), nil
}

// filter returns copies ordered by scheduledFor. limit <= 0 means no limit.
func (r *postRepository) filter(keep func(*models.Post) bool, limit int) []*models.Post {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Post
	for _, p := range r.s.posts {
		if keep(p) {
			out = append(out, copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledFor.Equal(out[j].ScheduledFor) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledFor.Before(out[j].ScheduledFor)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *postRepository) ExistsForOccurrence(ctx context.Context, recurringID string, at time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.posts {
		if p.RecurringPostID != nil && *p.RecurringPostID == recurringID && p.ScheduledFor.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[post.ID]
	if !ok || !p.Editable() {
		return nil
	}

	updated := copyPost(post)
	updated.UserID = p.UserID
	updated.SocialAccountID = p.SocialAccountID
	updated.RecurringPostID = p.RecurringPostID
	updated.ExternalPostID = p.ExternalPostID
	updated.LastErrorKind = p.LastErrorKind
	updated.LastError = p.LastError
	updated.PublishedAt = p.PublishedAt
	updated.CreatedAt = p.CreatedAt
	updated.ScheduledFor = post.ScheduledFor.UTC()
	updated.UpdatedAt = r.s.now()
	r.s.posts[post.ID] = updated
	return nil
}

func (r *postRepository) Claim(ctx context.Context, id string, from []string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok || !slices.Contains(from, p.Status) {
		return false, nil
	}
	p.Status = models.PostStatusPending
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *postRepository) MarkPublished(ctx context.Context, id, externalID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil
	}
	published := at.UTC()
	p.Status = models.PostStatusPublished
	p.ExternalPostID = externalID
	p.PublishedAt = &published
	p.LastErrorKind = ""
	p.LastError = ""
	p.UpdatedAt = r.s.now()
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, id string, kind models.ErrorKind, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil
	}
	p.Status = models.PostStatusFailed
	p.LastErrorKind = string(kind)
	p.LastError = message
	p.UpdatedAt = r.s.now()
	return nil
}

func (r *postRepository) FailStale(ctx context.Context, cutoff time.Time, kind models.ErrorKind, message string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	moved := 0
	for _, p := range r.s.posts {
		if p.Status != models.PostStatusPending || !p.UpdatedAt.Before(cutoff) {
			continue
		}
		p.Status = models.PostStatusFailed
		p.LastErrorKind = string(kind)
		p.LastError = message
		p.UpdatedAt = r.s.now()
		moved++
	}
	return moved, nil
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.posts, id)
	return nil
}
