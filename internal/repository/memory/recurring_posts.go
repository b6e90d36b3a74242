package memory

import (
	"context"
	"sort"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
)

type recurringPostRepository struct {
	s *Store
}

func (r *recurringPostRepository) Create(ctx context.Context, rp *models.RecurringPost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rules[rp.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	rp.CreatedAt = now
	rp.UpdatedAt = now
	r.s.rules[rp.ID] = copyRule(rp)
	return nil
}

func (r *recurringPostRepository) GetByID(ctx context.Context, id string) (*models.RecurringPost, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rp, ok := r.s.rules[id]
	if !ok {
		return nil, nil
	}
	return copyRule(rp), nil
}

func (r *recurringPostRepository) GetByUserID(ctx context.Context, userID string) ([]*models.RecurringPost, error) {
	return r.filter(func(rp *models.RecurringPost) bool { return rp.UserID == userID }), nil
}

func (r *recurringPostRepository) ListActive(ctx context.Context) ([]*models.RecurringPost, error) {
	return r.filter(func(rp *models.RecurringPost) bool { return rp.Status == models.RecurringStatusActive }), nil
}

func (r *recurringPostRepository) filter(keep func(*models.RecurringPost) bool) []*models.RecurringPost {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.RecurringPost
	for _, rp := range r.s.rules {
		if keep(rp) {
			out = append(out, copyRule(rp))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *recurringPostRepository) AdvanceLastPosted(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rp, ok := r.s.rules[id]
	if !ok {
		return nil
	}
	at = at.UTC()
	if rp.LastPostedAt == nil || rp.LastPostedAt.Before(at) {
		rp.LastPostedAt = &at
		rp.UpdatedAt = r.s.now()
	}
	return nil
}

func (r *recurringPostRepository) SetStatus(ctx context.Context, id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rp, ok := r.s.rules[id]; ok {
		rp.Status = status
		rp.UpdatedAt = r.s.now()
	}
	return nil
}

func (r *recurringPostRepository) Remove(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.rules, id)
	for _, p := range r.s.posts {
		if p.RecurringPostID != nil && *p.RecurringPostID == id {
			p.RecurringPostID = nil
		}
	}
	return nil
}
