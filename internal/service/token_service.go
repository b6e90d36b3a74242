package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/repository"
)

type TokenState int

const (
	TokenReady TokenState = iota
	TokenRequiresReconnect
)

func (s TokenState) String() string {
	if s == TokenRequiresReconnect {
		return "requires_reconnect"
	}
	return "ready"
}

const reasonTokenExpired = "access token expired"

// TokenService decides whether an account's credentials may be used and
// owns the requiresReconnect flag.
type TokenService interface {
	CheckAndRefresh(ctx context.Context, account *models.SocialAccount) (TokenState, error)
	MarkReconnect(ctx context.Context, account *models.SocialAccount, reason string) error
	FlagExpired(ctx context.Context) (int, error)
}

type tokenService struct {
	accounts repository.SocialAccountRepository
	now      func() time.Time
}

func NewTokenService(accounts repository.SocialAccountRepository, now func() time.Time) TokenService {
	if now == nil {
		now = time.Now
	}
	return &tokenService{accounts: accounts, now: now}
}

// CheckAndRefresh does not prove the token works; only the platform call does.
func (s *tokenService) CheckAndRefresh(ctx context.Context, account *models.SocialAccount) (TokenState, error) {
	if account.RequiresReconnect {
		return TokenRequiresReconnect, nil
	}

	if account.TokenExpiresAt != nil && !account.TokenExpiresAt.After(s.now()) {
		if err := s.MarkReconnect(ctx, account, reasonTokenExpired); err != nil {
			return TokenRequiresReconnect, err
		}
		return TokenRequiresReconnect, nil
	}

	return TokenReady, nil
}

func (s *tokenService) MarkReconnect(ctx context.Context, account *models.SocialAccount, reason string) error {
	account.RequiresReconnect = true
	account.LastError = &reason

	if err := s.accounts.SetRequiresReconnect(ctx, account.ID, reason); err != nil {
		return fmt.Errorf("error flagging account %s for reconnect: %w", account.ID, err)
	}
	slog.Warn("social account requires reconnect", "account_id", account.ID, "platform", account.Platform, "reason", reason)
	return nil
}

// FlagExpired marks every account whose token has lapsed. It returns how many were flagged.
func (s *tokenService) FlagExpired(ctx context.Context) (int, error) {
	accounts, err := s.accounts.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error listing expired accounts: %w", err)
	}

	flagged := 0
	for _, account := range accounts {
		if err := s.MarkReconnect(ctx, account, reasonTokenExpired); err != nil {
			slog.Error(err.Error())
			continue
		}
		flagged++
	}
	return flagged, nil
}
