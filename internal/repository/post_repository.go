package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/lib/pq"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID string) (bool, error)
	// ScheduledTimes lists scheduledFor of the user's scheduled posts. An empty
	// accountID covers every account.
	ScheduledTimes(ctx context.Context, userID, accountID, excludeID string) ([]time.Time, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	ExistsForOccurrence(ctx context.Context, recurringID string, at time.Time) (bool, error)
	Update(ctx context.Context, post *models.Post) error
	// Claim moves the post to pending if its status is one of from.
	Claim(ctx context.Context, id string, from []string) (bool, error)
	MarkPublished(ctx context.Context, id, externalID string, at time.Time) error
	MarkFailed(ctx context.Context, id string, kind models.ErrorKind, message string) error
	// FailStale moves posts that have been pending since before cutoff to
	// failed and returns how many it moved.
	FailStale(ctx context.Context, cutoff time.Time, kind models.ErrorKind, message string) (int, error)
	Remove(ctx context.Context, id string) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, social_account_id, recurring_post_id, post_type, content, image_urls,
	poll_options, hashtags, scheduled_for, timezone, status, external_post_id, last_error_kind,
	last_error, published_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var post models.Post
	var recurringID sql.NullString
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.SocialAccountID,
		&recurringID,
		&post.PostType,
		&post.Content,
		pq.Array(&post.MediaURLs),
		pq.Array(&post.PollOptions),
		pq.Array(&post.Hashtags),
		&post.ScheduledFor,
		&post.Timezone,
		&post.Status,
		&post.ExternalPostID,
		&post.LastErrorKind,
		&post.LastError,
		&post.PublishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if recurringID.Valid {
		post.RecurringPostID = &recurringID.String
	}
	post.ScheduledFor = post.ScheduledFor.UTC()
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, user_id, social_account_id, recurring_post_id, post_type, content,
			image_urls, poll_options, hashtags, scheduled_for, timezone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		post.ID,
		post.UserID,
		post.SocialAccountID,
		post.RecurringPostID,
		post.PostType,
		post.Content,
		pq.Array(post.MediaURLs),
		pq.Array(post.PollOptions),
		pq.Array(post.Hashtags),
		post.ScheduledFor.UTC(),
		post.Timezone,
		post.Status,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY scheduled_for`
	return r.list(ctx, query, userID)
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for
		LIMIT $3`
	return r.list(ctx, query, models.PostStatusScheduled, now.UTC(), limit)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID string) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) ScheduledTimes(ctx context.Context, userID, accountID, excludeID string) ([]time.Time, error) {
	query := `
		SELECT scheduled_for FROM posts
		WHERE user_id = $1
			AND status = $2
			AND ($3::text = '' OR social_account_id = $3)
			AND id <> $4
	`
	rows, err := r.db.QueryContext(ctx, query, userID, models.PostStatusScheduled, accountID, excludeID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		times = append(times, t.UTC())
	}
	return times, rows.Err()
}

func (r *postRepository) ExistsForOccurrence(ctx context.Context, recurringID string, at time.Time) (bool, error) {
	query := "SELECT 1 FROM posts WHERE recurring_post_id = $1 AND scheduled_for = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, recurringID, at.UTC()).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return true, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET post_type = $1,
			content = $2,
			image_urls = $3,
			poll_options = $4,
			hashtags = $5,
			scheduled_for = $6,
			timezone = $7,
			status = $8,
			updated_at = $9
		WHERE id = $10 AND status NOT IN ('pending', 'published')
	`
	_, err := r.db.ExecContext(ctx, query,
		post.PostType,
		post.Content,
		pq.Array(post.MediaURLs),
		pq.Array(post.PollOptions),
		pq.Array(post.Hashtags),
		post.ScheduledFor.UTC(),
		post.Timezone,
		post.Status,
		time.Now(),
		post.ID,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Claim(ctx context.Context, id string, from []string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPending, time.Now(), id, pq.Array(from))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) MarkPublished(ctx context.Context, id, externalID string, at time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			external_post_id = $2,
			published_at = $3,
			last_error_kind = '',
			last_error = '',
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, externalID, at.UTC(), time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, id string, kind models.ErrorKind, message string) error {
	query := `
		UPDATE posts
		SET status = $1,
			last_error_kind = $2,
			last_error = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, string(kind), message, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) FailStale(ctx context.Context, cutoff time.Time, kind models.ErrorKind, message string) (int, error) {
	query := `
		UPDATE posts
		SET status = $1,
			last_error_kind = $2,
			last_error = $3,
			updated_at = $4
		WHERE status = $5 AND updated_at < $6
	`
	result, err := r.db.ExecContext(ctx, query,
		models.PostStatusFailed,
		string(kind),
		message,
		time.Now(),
		models.PostStatusPending,
		cutoff.UTC(),
	)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return int(affected), nil
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
