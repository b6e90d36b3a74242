package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
)

const (
	MaxCarouselItems = 10
	MinPollOptions   = 2
	MaxPollOptions   = 4
)

// Credentials identify the destination of a publish call. Tokens are plaintext.
type Credentials struct {
	AccountID       string
	AccessToken     string
	PageAccessToken string
}

// PublishRequest is the platform-neutral description of one post.
type PublishRequest struct {
	PostID      string
	PostType    string
	Text        string
	MediaURLs   []string
	PollOptions []string
	Credentials Credentials
}

// Result is what a successful publish produced on the platform.
type Result struct {
	ExternalID string
	MediaIDs   []string
}

// Adapter publishes to one platform. Every error it returns is an *Error.
type Adapter interface {
	Platform() string
	Publish(ctx context.Context, req *PublishRequest) (*Result, error)
}

// Revoker is implemented by adapters that can drop the app's grant on disconnect.
type Revoker interface {
	Revoke(ctx context.Context, creds Credentials) error
}

// Error is a platform failure normalized to one kind.
type Error struct {
	Kind       models.ErrorKind
	Message    string
	RetryAfter time.Duration
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind models.ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the *Error from err, classifying anything else
// (timeouts, dial failures) the way transport errors are classified.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return classifyTransport(err)
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(models.ErrorKindTransientNetwork, "platform request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return NewError(models.ErrorKindTransientNetwork, "platform request canceled")
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return NewError(models.ErrorKindTransientNetwork, "%s", err.Error())
	}
	return NewError(models.ErrorKindUnknown, "%s", err.Error())
}

// ValidateContent checks the media and poll rules of a post type.
func ValidateContent(postType string, mediaURLs, pollOptions []string) *Error {
	for _, u := range mediaURLs {
		if strings.TrimSpace(u) == "" {
			return NewError(models.ErrorKindValidation, "media urls must not be empty")
		}
	}

	switch postType {
	case models.PostTypeText:
		if len(mediaURLs) != 0 {
			return NewError(models.ErrorKindValidation, "text posts take no media")
		}
	case models.PostTypePoll:
		if len(mediaURLs) != 0 {
			return NewError(models.ErrorKindValidation, "poll posts take no media")
		}
		if len(pollOptions) < MinPollOptions || len(pollOptions) > MaxPollOptions {
			return NewError(models.ErrorKindValidation, "polls need %d to %d options, got %d", MinPollOptions, MaxPollOptions, len(pollOptions))
		}
		for _, o := range pollOptions {
			if strings.TrimSpace(o) == "" {
				return NewError(models.ErrorKindValidation, "poll options must not be empty")
			}
		}
		return nil
	case models.PostTypeImage, models.PostTypeVideo:
		if len(mediaURLs) != 1 {
			return NewError(models.ErrorKindValidation, "%s posts need exactly one media url, got %d", postType, len(mediaURLs))
		}
	case models.PostTypeCarousel:
		if len(mediaURLs) < 1 || len(mediaURLs) > MaxCarouselItems {
			return NewError(models.ErrorKindValidation, "carousel posts need 1 to %d media urls, got %d", MaxCarouselItems, len(mediaURLs))
		}
	default:
		return NewError(models.ErrorKindValidation, "unknown post type %q", postType)
	}

	if len(pollOptions) != 0 {
		return NewError(models.ErrorKindValidation, "poll options are only allowed on poll posts")
	}
	return nil
}

// Validate runs the checks every adapter applies before touching the network.
func Validate(req *PublishRequest) error {
	if req == nil {
		return NewError(models.ErrorKindValidation, "empty publish request")
	}
	if strings.TrimSpace(req.Text) == "" {
		return NewError(models.ErrorKindValidation, "content is required")
	}
	if req.Credentials.AccountID == "" {
		return NewError(models.ErrorKindValidation, "destination account id is missing")
	}
	if req.Credentials.AccessToken == "" && req.Credentials.PageAccessToken == "" {
		return NewError(models.ErrorKindAuthExpired, "no access token for account")
	}
	if perr := ValidateContent(req.PostType, req.MediaURLs, req.PollOptions); perr != nil {
		return perr
	}
	return nil
}

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Get(platform string) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}
