package memory

import (
	"context"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
)

type postingHistoryRepository struct {
	s *Store
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ph.ID = int64(len(r.s.history) + 1)
	ph.CreatedAt = r.s.now()
	c := *ph
	r.s.history = append(r.s.history, &c)
	return ph.ID, nil
}

func (r *postingHistoryRepository) ListByPostID(ctx context.Context, postID string) ([]*models.PostingHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.PostingHistory
	for _, ph := range r.s.history {
		if ph.PostID == postID {
			c := *ph
			out = append(out, &c)
		}
	}
	return out, nil
}

type draftRepository struct {
	s *Store
}

func (r *draftRepository) Get(ctx context.Context, userID string) (*models.Draft, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.drafts[userID]
	if !ok {
		return nil, nil
	}
	return copyDraft(d), nil
}

func (r *draftRepository) Save(ctx context.Context, draft *models.Draft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.drafts[draft.UserID] = copyDraft(draft)
	return nil
}

func (r *draftRepository) Delete(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.drafts, userID)
	return nil
}
