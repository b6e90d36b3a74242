package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/service"
)

// TokenExpiryJob flags accounts whose tokens lapsed so the UI can ask for a
// reconnect before the next post fails on them.
type TokenExpiryJob struct {
	tokens  service.TokenService
	metrics service.Metrics
	timeout time.Duration
}

func NewTokenExpiryJob(tokens service.TokenService, metrics service.Metrics) *TokenExpiryJob {
	return &TokenExpiryJob{
		tokens:  tokens,
		metrics: metrics,
		timeout: time.Minute,
	}
}

func (j *TokenExpiryJob) FlagExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	flagged, err := j.tokens.FlagExpired(ctx)
	if err != nil {
		slog.Info(err.Error())
	}
	if flagged > 0 {
		slog.Info("flagged social accounts for reconnect", "count", flagged)
	}
	j.metrics.AccountsFlagged(flagged)
}
