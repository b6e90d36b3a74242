package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/pkg/utils"
)

const DefaultInstagramURL = "https://graph.instagram.com/v21.0"

const (
	containerFinished = "FINISHED"
	containerError    = "ERROR"
	containerExpired  = "EXPIRED"
)

// Instagram publishes through the Instagram content publishing API:
// media containers are created first, then published.
type Instagram struct {
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
}

type InstagramOption func(*Instagram)

// WithContainerPolling sets how video containers are polled until ready.
func WithContainerPolling(interval time.Duration, attempts int) InstagramOption {
	return func(ig *Instagram) {
		ig.pollInterval = interval
		ig.maxPolls = attempts
	}
}

func NewInstagram(client *http.Client, baseURL string, opts ...InstagramOption) *Instagram {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultInstagramURL
	}
	ig := &Instagram{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		pollInterval: 2 * time.Second,
		maxPolls:     5,
	}
	for _, opt := range opts {
		opt(ig)
	}
	return ig
}

func (ig *Instagram) Platform() string {
	return models.PlatformInstagram
}

func (ig *Instagram) Publish(ctx context.Context, req *PublishRequest) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	token := req.Credentials.AccessToken
	if token == "" {
		token = req.Credentials.PageAccessToken
	}
	account := req.Credentials.AccountID

	switch req.PostType {
	case models.PostTypeText, models.PostTypePoll:
		return nil, NewError(models.ErrorKindValidation, "instagram posts require media")
	case models.PostTypeImage:
		return ig.single(ctx, account, token, req.Text, req.MediaURLs[0], false)
	case models.PostTypeVideo:
		return ig.single(ctx, account, token, req.Text, req.MediaURLs[0], true)
	case models.PostTypeCarousel:
		if len(req.MediaURLs) == 1 {
			return ig.single(ctx, account, token, req.Text, req.MediaURLs[0], isVideoURL(req.MediaURLs[0]))
		}
		return ig.carousel(ctx, account, token, req.Text, req.MediaURLs)
	}
	return nil, NewError(models.ErrorKindValidation, "unsupported post type %q", req.PostType)
}

func (ig *Instagram) single(ctx context.Context, account, token, caption, mediaURL string, video bool) (*Result, error) {
	payload := map[string]interface{}{
		"caption":      caption,
		"access_token": token,
	}
	if video {
		payload["media_type"] = "REELS"
		payload["video_url"] = mediaURL
	} else {
		payload["image_url"] = mediaURL
	}

	containerID, err := ig.createContainer(ctx, account, payload)
	if err != nil {
		return nil, err
	}
	if video {
		if err := ig.waitReady(ctx, containerID, token); err != nil {
			return nil, err
		}
	}

	mediaID, err := ig.publish(ctx, account, containerID, token)
	if err != nil {
		return nil, err
	}
	return &Result{ExternalID: mediaID, MediaIDs: []string{containerID}}, nil
}

// carousel creates one child container per item, in order, and publishes a
// single carousel container referencing them. Nothing is published unless
// every child was created.
func (ig *Instagram) carousel(ctx context.Context, account, token, caption string, mediaURLs []string) (*Result, error) {
	children := make([]string, 0, len(mediaURLs))
	hasVideo := false

	for i, mediaURL := range mediaURLs {
		payload := map[string]interface{}{
			"is_carousel_item": true,
			"access_token":     token,
		}
		if isVideoURL(mediaURL) {
			hasVideo = true
			payload["media_type"] = "VIDEO"
			payload["video_url"] = mediaURL
		} else {
			payload["image_url"] = mediaURL
		}

		id, err := ig.createContainer(ctx, account, payload)
		if err != nil {
			return nil, fmt.Errorf("carousel item %d: %w", i+1, err)
		}
		children = append(children, id)
	}

	if hasVideo {
		for _, id := range children {
			if err := ig.waitReady(ctx, id, token); err != nil {
				return nil, err
			}
		}
	}

	containerID, err := ig.createContainer(ctx, account, map[string]interface{}{
		"media_type":   "CAROUSEL",
		"children":     strings.Join(children, ","),
		"caption":      caption,
		"access_token": token,
	})
	if err != nil {
		return nil, err
	}

	mediaID, err := ig.publish(ctx, account, containerID, token)
	if err != nil {
		return nil, err
	}
	return &Result{ExternalID: mediaID, MediaIDs: children}, nil
}

func (ig *Instagram) createContainer(ctx context.Context, account string, payload map[string]interface{}) (string, error) {
	var result transfer.GraphIDResponse
	_, err := sendJSON(ctx, ig.client, http.MethodPost, fmt.Sprintf("%s/%s/media", ig.baseURL, account), payload, nil, classifyGraph, &result)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", NewError(models.ErrorKindUnknown, "no media ID returned from Instagram")
	}
	return result.ID, nil
}

func (ig *Instagram) publish(ctx context.Context, account, containerID, token string) (string, error) {
	var result transfer.GraphIDResponse
	_, err := sendJSON(ctx, ig.client, http.MethodPost, fmt.Sprintf("%s/%s/media_publish", ig.baseURL, account), map[string]string{
		"creation_id":  containerID,
		"access_token": token,
	}, nil, classifyGraph, &result)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", NewError(models.ErrorKindUnknown, "no published media ID returned from Instagram")
	}
	return result.ID, nil
}

// waitReady polls a container until Instagram has finished processing it.
func (ig *Instagram) waitReady(ctx context.Context, containerID, token string) error {
	u := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", ig.baseURL, containerID, url.QueryEscape(token))

	for i := 0; i < ig.maxPolls; i++ {
		var status transfer.GraphContainerStatus
		if _, err := sendJSON(ctx, ig.client, http.MethodGet, u, nil, nil, classifyGraph, &status); err != nil {
			return err
		}

		switch status.StatusCode {
		case containerFinished:
			return nil
		case containerError, containerExpired:
			return NewError(models.ErrorKindUnknown, "media container %s ended in %s", containerID, status.StatusCode)
		}

		if err := utils.SleepContext(ctx, ig.pollInterval); err != nil {
			return classifyTransport(err)
		}
	}
	return NewError(models.ErrorKindTransientNetwork, "media container %s is still processing", containerID)
}

func isVideoURL(mediaURL string) bool {
	p := mediaURL
	if u, err := url.Parse(mediaURL); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mp4", ".mov", ".m4v":
		return true
	}
	return false
}
