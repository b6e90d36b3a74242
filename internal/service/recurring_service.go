package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type RecurringService interface {
	Create(ctx context.Context, userID string, rc *transfer.RecurringPostCreation) (*models.RecurringPost, error)
	List(ctx context.Context, userID string) ([]*models.RecurringPost, error)
	Pause(ctx context.Context, userID, id string) (*models.RecurringPost, error)
	Resume(ctx context.Context, userID, id string) (*models.RecurringPost, error)
	Remove(ctx context.Context, userID, id string) error
}

type recurringService struct {
	rr repository.RecurringPostRepository
	ac repository.SocialAccountRepository
}

func NewRecurringService(rr repository.RecurringPostRepository, ac repository.SocialAccountRepository) RecurringService {
	return &recurringService{rr: rr, ac: ac}
}

func (s *recurringService) Create(ctx context.Context, userID string, rc *transfer.RecurringPostCreation) (*models.RecurringPost, error) {
	if rc == nil {
		return nil, fmt.Errorf("%w: recurring post data is nil", ErrInvalidInput)
	}

	if rc.SocialAccountID == "" {
		return nil, fmt.Errorf("%w: social account is required", ErrInvalidInput)
	}
	isValid, err := s.ac.CheckByUserID(ctx, rc.SocialAccountID, userID)
	if err != nil {
		return nil, fmt.Errorf("error checking social account: %w", err)
	}
	if !isValid {
		return nil, ErrAccountNotFound
	}

	timezone, err := normalizeTimezone(rc.Timezone)
	if err != nil {
		return nil, err
	}

	rule := &models.RecurringPost{
		UserID:              userID,
		SocialAccountID:     rc.SocialAccountID,
		PostType:            rc.PostType,
		Content:             strings.TrimSpace(rc.Content),
		MediaURLs:           rc.MediaURLs,
		PollOptions:         rc.PollOptions,
		Hashtags:            rc.Hashtags,
		Timezone:            timezone,
		Frequency:           rc.Frequency,
		IntervalValue:       rc.IntervalValue,
		CustomIntervalHours: rc.CustomIntervalHours,
		Status:              models.RecurringStatusActive,
	}
	if rc.StartDate != nil {
		start := rc.StartDate.UTC()
		rule.StartDate = &start
	}
	if rc.EndDate != nil {
		end := rc.EndDate.UTC()
		rule.EndDate = &end
	}

	if err := validatePost(rule.PostType, rule.Content, rule.MediaURLs, rule.PollOptions); err != nil {
		return nil, err
	}
	if err := validateCadence(rule); err != nil {
		return nil, err
	}

	rule.ID, err = gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("error generating recurring post id: %w", err)
	}

	if err := s.rr.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("error creating recurring post: %w", err)
	}
	return rule, nil
}

func validateCadence(rule *models.RecurringPost) error {
	switch rule.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
		if rule.IntervalValue <= 0 {
			return fmt.Errorf("%w: interval must be positive", ErrInvalidInput)
		}
	case models.FrequencyCustom:
		if rule.CustomIntervalHours <= 0 {
			return fmt.Errorf("%w: custom interval hours must be positive", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, rule.Frequency)
	}

	if rule.StartDate != nil && rule.EndDate != nil && !rule.EndDate.After(*rule.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	}
	return nil
}

func (s *recurringService) List(ctx context.Context, userID string) ([]*models.RecurringPost, error) {
	rules, err := s.rr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting recurring posts: %w", err)
	}
	if rules == nil {
		rules = []*models.RecurringPost{}
	}
	return rules, nil
}

func (s *recurringService) Pause(ctx context.Context, userID, id string) (*models.RecurringPost, error) {
	return s.transition(ctx, userID, id, models.RecurringStatusActive, models.RecurringStatusPaused)
}

func (s *recurringService) Resume(ctx context.Context, userID, id string) (*models.RecurringPost, error) {
	return s.transition(ctx, userID, id, models.RecurringStatusPaused, models.RecurringStatusActive)
}

func (s *recurringService) transition(ctx context.Context, userID, id, from, to string) (*models.RecurringPost, error) {
	rule, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rule.Status == to {
		return rule, nil
	}
	if rule.Status != from {
		return nil, fmt.Errorf("%w: recurring post is %s", ErrInvalidInput, rule.Status)
	}

	if err := s.rr.SetStatus(ctx, id, to); err != nil {
		return nil, fmt.Errorf("error updating recurring post: %w", err)
	}
	rule.Status = to
	return rule, nil
}

// Remove deletes the rule. Posts it already spawned stay.
func (s *recurringService) Remove(ctx context.Context, userID, id string) error {
	if _, err := s.get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.rr.Remove(ctx, id); err != nil {
		return fmt.Errorf("error removing recurring post: %w", err)
	}
	return nil
}

func (s *recurringService) get(ctx context.Context, userID, id string) (*models.RecurringPost, error) {
	rule, err := s.rr.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting recurring post: %w", err)
	}
	if rule == nil || rule.UserID != userID {
		return nil, ErrRecurringNotFound
	}
	return rule, nil
}
