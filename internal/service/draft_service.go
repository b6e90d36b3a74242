package service

import (
	"context"
	"fmt"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
)

// DraftService is the composer's scratch space. The pipeline never reads it.
type DraftService interface {
	Get(ctx context.Context, userID string) (*models.Draft, error)
	Save(ctx context.Context, userID string, draft *models.Draft) (*models.Draft, error)
	Discard(ctx context.Context, userID string) error
}

type draftService struct {
	dr  repository.DraftRepository
	now func() time.Time
}

func NewDraftService(dr repository.DraftRepository) DraftService {
	return &draftService{dr: dr, now: time.Now}
}

// Get returns an empty draft when none is stored.
func (s *draftService) Get(ctx context.Context, userID string) (*models.Draft, error) {
	draft, err := s.dr.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading draft: %w", err)
	}
	if draft == nil {
		return &models.Draft{UserID: userID}, nil
	}
	return draft, nil
}

// Save replaces the stored draft. The last write wins.
func (s *draftService) Save(ctx context.Context, userID string, draft *models.Draft) (*models.Draft, error) {
	if draft == nil {
		return nil, fmt.Errorf("%w: draft is nil", ErrInvalidInput)
	}
	draft.UserID = userID
	draft.UpdatedAt = s.now().UTC()

	if err := s.dr.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("error saving draft: %w", err)
	}
	return draft, nil
}

func (s *draftService) Discard(ctx context.Context, userID string) error {
	if err := s.dr.Delete(ctx, userID); err != nil {
		return fmt.Errorf("error discarding draft: %w", err)
	}
	return nil
}
