package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/redis/go-redis/v9"
)

// DraftRepository keeps one composer draft per user. Save overwrites.
type DraftRepository interface {
	Get(ctx context.Context, userID string) (*models.Draft, error)
	Save(ctx context.Context, draft *models.Draft) error
	Delete(ctx context.Context, userID string) error
}

type draftRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftRepository(rdb *redis.Client, ttl time.Duration) DraftRepository {
	return &draftRepository{rdb: rdb, ttl: ttl}
}

func draftKey(userID string) string {
	return fmt.Sprintf("draft:%s", userID)
}

func (r *draftRepository) Get(ctx context.Context, userID string) (*models.Draft, error) {
	raw, err := r.rdb.Get(ctx, draftKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding draft: %w", err)
	}
	return &draft, nil
}

func (r *draftRepository) Save(ctx context.Context, draft *models.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("error encoding draft: %w", err)
	}

	if err := r.rdb.Set(ctx, draftKey(draft.UserID), raw, r.ttl).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *draftRepository) Delete(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, draftKey(userID)).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
