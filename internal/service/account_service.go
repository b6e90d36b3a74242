package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/platform"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type AccountService interface {
	Connect(ctx context.Context, userID string, ac *transfer.AccountConnection) (*models.SocialAccount, error)
	List(ctx context.Context, userID string) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID string) error
}

type accountService struct {
	sa       repository.SocialAccountRepository
	registry *platform.Registry
	cipher   *utils.TokenCipher
	revoke   utils.RetryPolicy
	now      func() time.Time
}

func NewAccountService(sa repository.SocialAccountRepository, registry *platform.Registry, cipher *utils.TokenCipher, revoke utils.RetryPolicy) AccountService {
	if revoke.MaxAttempts < 1 {
		revoke.MaxAttempts = 3
	}
	if revoke.Backoff == nil {
		revoke.Backoff = utils.ExponentialBackoff(time.Second)
	}
	if revoke.Classify == nil {
		revoke.Classify = func(err error) (bool, time.Duration) {
			perr := platform.AsError(err)
			return perr.Kind.Retryable(), perr.RetryAfter
		}
	}
	return &accountService{
		sa:       sa,
		registry: registry,
		cipher:   cipher,
		revoke:   revoke,
		now:      time.Now,
	}
}

// Connect stores the output of a platform OAuth flow. Tokens are encrypted before they reach storage.
func (s *accountService) Connect(ctx context.Context, userID string, ac *transfer.AccountConnection) (*models.SocialAccount, error) {
	if ac == nil {
		return nil, fmt.Errorf("%w: account data is nil", ErrInvalidInput)
	}
	if !models.ValidPlatform(ac.Platform) {
		return nil, fmt.Errorf("%w: unsupported platform %q", ErrInvalidInput, ac.Platform)
	}
	if ac.AccessToken == "" || ac.UserID == "" {
		return nil, fmt.Errorf("%w: access token and platform user id are required", ErrInvalidInput)
	}

	accessToken, err := s.cipher.Seal(ac.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("error encrypting access token: %w", err)
	}
	pageToken, err := s.cipher.Seal(ac.PageAccessToken)
	if err != nil {
		return nil, fmt.Errorf("error encrypting page access token: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("error generating account id: %w", err)
	}

	account := &models.SocialAccount{
		ID:              id,
		UserID:          userID,
		Platform:        ac.Platform,
		AccountID:       ac.UserID,
		AccountName:     ac.AccountName,
		AccessToken:     accessToken,
		PageAccessToken: pageToken,
	}
	if ac.ExpiresIn > 0 {
		expiresAt := GetExpiresAt(s.now(), ac.ExpiresIn)
		account.TokenExpiresAt = &expiresAt
	}

	if err := s.sa.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: account is already connected", ErrInvalidInput)
		}
		return nil, fmt.Errorf("error saving social account: %w", err)
	}
	return account, nil
}

func (s *accountService) List(ctx context.Context, userID string) ([]*models.SocialAccount, error) {
	if userID == "" {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts: %w", err)
	}
	if accounts == nil {
		accounts = []*models.SocialAccount{}
	}
	return accounts, nil
}

// Delete revokes the platform grant when the adapter supports it, then
// removes the account with its posts and recurring posts. A failed revoke
// does not keep the account around.
func (s *accountService) Delete(ctx context.Context, userID, accountID string) error {
	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return fmt.Errorf("error checking social account: %w", err)
	}
	if !isValid {
		return ErrAccountNotFound
	}

	accountInfo, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("unable to get social account info: %w", err)
	}
	if accountInfo == nil {
		return ErrAccountNotFound
	}

	if !accountInfo.RequiresReconnect {
		s.revokeAccess(ctx, accountInfo)
	}

	if err := s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("error removing account: %w", err)
	}
	return nil
}

func (s *accountService) revokeAccess(ctx context.Context, account *models.SocialAccount) {
	adapter, ok := s.registry.Get(account.Platform)
	if !ok {
		return
	}
	revoker, ok := adapter.(platform.Revoker)
	if !ok {
		return
	}

	accessToken, err := s.cipher.Open(account.AccessToken)
	if err != nil {
		slog.Warn("skipping revoke, stored token is unreadable", "account_id", account.ID, "error", err)
		return
	}
	creds := platform.Credentials{AccountID: account.AccountID, AccessToken: accessToken}

	attempts, err := utils.Retry(ctx, s.revoke, func(ctx context.Context, _ int) error {
		return revoker.Revoke(ctx, creds)
	})
	if err != nil {
		slog.Warn("unable to revoke access", "account_id", account.ID, "platform", account.Platform, "attempts", attempts, "error", err)
	}
}
