package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/lib/pq"
)

type RecurringPostRepository interface {
	Create(ctx context.Context, rp *models.RecurringPost) error
	GetByID(ctx context.Context, id string) (*models.RecurringPost, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.RecurringPost, error)
	ListActive(ctx context.Context) ([]*models.RecurringPost, error)
	// AdvanceLastPosted only ever moves last_posted_at forward.
	AdvanceLastPosted(ctx context.Context, id string, at time.Time) error
	SetStatus(ctx context.Context, id, status string) error
	Remove(ctx context.Context, id string) error
}

type recurringPostRepository struct {
	db *sql.DB
}

func NewRecurringPostRepository(db *sql.DB) RecurringPostRepository {
	return &recurringPostRepository{db: db}
}

const recurringColumns = `id, user_id, social_account_id, post_type, content, image_urls, poll_options,
	hashtags, timezone, frequency, interval_value, custom_interval_hours, start_date, end_date,
	last_posted_at, status, created_at, updated_at`

func scanRecurringPost(row scanner) (*models.RecurringPost, error) {
	var rp models.RecurringPost
	err := row.Scan(
		&rp.ID,
		&rp.UserID,
		&rp.SocialAccountID,
		&rp.PostType,
		&rp.Content,
		pq.Array(&rp.MediaURLs),
		pq.Array(&rp.PollOptions),
		pq.Array(&rp.Hashtags),
		&rp.Timezone,
		&rp.Frequency,
		&rp.IntervalValue,
		&rp.CustomIntervalHours,
		&rp.StartDate,
		&rp.EndDate,
		&rp.LastPostedAt,
		&rp.Status,
		&rp.CreatedAt,
		&rp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

func (r *recurringPostRepository) Create(ctx context.Context, rp *models.RecurringPost) error {
	query := `
		INSERT INTO recurring_posts (id, user_id, social_account_id, post_type, content, image_urls,
			poll_options, hashtags, timezone, frequency, interval_value, custom_interval_hours,
			start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rp.ID,
		rp.UserID,
		rp.SocialAccountID,
		rp.PostType,
		rp.Content,
		pq.Array(rp.MediaURLs),
		pq.Array(rp.PollOptions),
		pq.Array(rp.Hashtags),
		rp.Timezone,
		rp.Frequency,
		rp.IntervalValue,
		rp.CustomIntervalHours,
		rp.StartDate,
		rp.EndDate,
		rp.Status,
	).Scan(&rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *recurringPostRepository) GetByID(ctx context.Context, id string) (*models.RecurringPost, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_posts WHERE id = $1`

	rp, err := scanRecurringPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return rp, nil
}

func (r *recurringPostRepository) GetByUserID(ctx context.Context, userID string) ([]*models.RecurringPost, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_posts WHERE user_id = $1 ORDER BY created_at`
	return r.list(ctx, query, userID)
}

func (r *recurringPostRepository) ListActive(ctx context.Context) ([]*models.RecurringPost, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_posts WHERE status = $1`
	return r.list(ctx, query, models.RecurringStatusActive)
}

func (r *recurringPostRepository) list(ctx context.Context, query string, args ...any) ([]*models.RecurringPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var rules []*models.RecurringPost
	for rows.Next() {
		rp, err := scanRecurringPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		rules = append(rules, rp)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return rules, nil
}

func (r *recurringPostRepository) AdvanceLastPosted(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE recurring_posts
		SET last_posted_at = $2,
			updated_at = $3
		WHERE id = $1 AND (last_posted_at IS NULL OR last_posted_at < $2)
	`
	_, err := r.db.ExecContext(ctx, query, id, at.UTC(), time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *recurringPostRepository) SetStatus(ctx context.Context, id, status string) error {
	query := `UPDATE recurring_posts SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *recurringPostRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM recurring_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
