package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
)

type SocialAccountRepository interface {
	Create(ctx context.Context, sa *models.SocialAccount) error
	GetByID(ctx context.Context, id string) (*models.SocialAccount, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.SocialAccount, error)
	// ListExpired returns accounts whose token lapsed at or before now and
	// that are not yet flagged for reconnect.
	ListExpired(ctx context.Context, now time.Time) ([]*models.SocialAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID string) (bool, error)
	SetRequiresReconnect(ctx context.Context, id, reason string) error
	Remove(ctx context.Context, id string) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const accountColumns = `id, user_id, platform, account_id, account_name, access_token,
	page_access_token, token_expires_at, requires_reconnect, last_error, created_at, updated_at`

func scanAccount(row scanner) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := row.Scan(
		&sa.ID,
		&sa.UserID,
		&sa.Platform,
		&sa.AccountID,
		&sa.AccountName,
		&sa.AccessToken,
		&sa.PageAccessToken,
		&sa.TokenExpiresAt,
		&sa.RequiresReconnect,
		&sa.LastError,
		&sa.CreatedAt,
		&sa.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) Create(ctx context.Context, sa *models.SocialAccount) error {
	var insertQuery = `
			INSERT INTO social_accounts(
				id,
				user_id,
				platform,
				account_id,
				account_name,
				access_token,
				page_access_token,
				token_expires_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`

	err := r.db.QueryRowContext(ctx, insertQuery,
		sa.ID,
		sa.UserID,
		sa.Platform,
		sa.AccountID,
		sa.AccountName,
		sa.AccessToken,
		sa.PageAccessToken,
		sa.TokenExpiresAt,
	).Scan(&sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id string) (*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE id = $1`

	sa, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return sa, nil
}

func (r *socialAccountRepository) ListByUserID(ctx context.Context, userID string) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE user_id = $1 ORDER BY created_at`
	return r.list(ctx, query, userID)
}

func (r *socialAccountRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts
			WHERE token_expires_at IS NOT NULL
			AND token_expires_at <= $1
			AND requires_reconnect = FALSE`
	return r.list(ctx, query, now.UTC())
}

func (r *socialAccountRepository) list(ctx context.Context, query string, args ...any) ([]*models.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, sa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *socialAccountRepository) CheckByUserID(ctx context.Context, accountID, userID string) (bool, error) {
	query := "SELECT 1 FROM social_accounts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// SetRequiresReconnect is a single-row last-write-wins update; repeating it is harmless.
func (r *socialAccountRepository) SetRequiresReconnect(ctx context.Context, id, reason string) error {
	query := `
		UPDATE social_accounts
		SET requires_reconnect = TRUE,
			last_error = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Remove deletes the account. Posts and recurring posts go with it through ON DELETE CASCADE.
func (r *socialAccountRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM social_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
