package memory

import (
	"context"
	"sort"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
)

type socialAccountRepository struct {
	s *Store
}

func (r *socialAccountRepository) Create(ctx context.Context, sa *models.SocialAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[sa.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, a := range r.s.accounts {
		if a.UserID == sa.UserID && a.Platform == sa.Platform && a.AccountID == sa.AccountID {
			return repository.ErrDuplicate
		}
	}

	now := r.s.now()
	sa.CreatedAt = now
	sa.UpdatedAt = now
	r.s.accounts[sa.ID] = copyAccount(sa)
	return nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id string) (*models.SocialAccount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sa, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	return copyAccount(sa), nil
}

func (r *socialAccountRepository) ListByUserID(ctx context.Context, userID string) ([]*models.SocialAccount, error) {
	return r.filter(func(sa *models.SocialAccount) bool { return sa.UserID == userID }), nil
}

func (r *socialAccountRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.SocialAccount, error) {
	return r.filter(func(sa *models.SocialAccount) bool {
		return sa.TokenExpiresAt != nil && !sa.TokenExpiresAt.After(now) && !sa.RequiresReconnect
	}), nil
}

func (r *socialAccountRepository) filter(keep func(*models.SocialAccount) bool) []*models.SocialAccount {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.SocialAccount
	for _, sa := range r.s.accounts {
		if keep(sa) {
			out = append(out, copyAccount(sa))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *socialAccountRepository) CheckByUserID(ctx context.Context, accountID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sa, ok := r.s.accounts[accountID]
	return ok && sa.UserID == userID, nil
}

func (r *socialAccountRepository) SetRequiresReconnect(ctx context.Context, id, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if sa, ok := r.s.accounts[id]; ok {
		sa.RequiresReconnect = true
		sa.LastError = &reason
		sa.UpdatedAt = r.s.now()
	}
	return nil
}

// Remove cascades to the account's posts and recurring posts.
func (r *socialAccountRepository) Remove(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.accounts, id)
	for pid, p := range r.s.posts {
		if p.SocialAccountID == id {
			delete(r.s.posts, pid)
		}
	}
	for rid, rp := range r.s.rules {
		if rp.SocialAccountID == id {
			delete(r.s.rules, rid)
		}
	}
	return nil
}
