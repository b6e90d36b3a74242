package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
)

const DefaultFacebookURL = "https://graph.facebook.com/v21.0"

// Facebook publishes to a Facebook page through the Graph API.
type Facebook struct {
	client  *http.Client
	baseURL string
}

func NewFacebook(client *http.Client, baseURL string) *Facebook {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultFacebookURL
	}
	return &Facebook{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (f *Facebook) Platform() string {
	return models.PlatformFacebook
}

func (f *Facebook) Publish(ctx context.Context, req *PublishRequest) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	token := req.Credentials.PageAccessToken
	if token == "" {
		token = req.Credentials.AccessToken
	}
	page := req.Credentials.AccountID

	switch req.PostType {
	case models.PostTypeText:
		return f.feed(ctx, page, token, req.Text, nil)
	case models.PostTypePoll:
		return f.feed(ctx, page, token, pollText(req.Text, req.PollOptions), nil)
	case models.PostTypeImage:
		return f.photo(ctx, page, token, req.Text, req.MediaURLs[0])
	case models.PostTypeVideo:
		return f.video(ctx, page, token, req.Text, req.MediaURLs[0])
	case models.PostTypeCarousel:
		return f.carousel(ctx, page, token, req.Text, req.MediaURLs)
	}
	return nil, NewError(models.ErrorKindValidation, "unsupported post type %q", req.PostType)
}

func (f *Facebook) feed(ctx context.Context, page, token, message string, attached []transfer.GraphAttachedMedia) (*Result, error) {
	payload := map[string]interface{}{
		"message":      message,
		"access_token": token,
	}
	if len(attached) > 0 {
		payload["attached_media"] = attached
	}

	var result transfer.GraphIDResponse
	if err := f.post(ctx, fmt.Sprintf("%s/%s/feed", f.baseURL, page), payload, &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, NewError(models.ErrorKindUnknown, "no post ID returned from Facebook")
	}

	res := &Result{ExternalID: result.ID}
	for _, m := range attached {
		res.MediaIDs = append(res.MediaIDs, m.MediaFbID)
	}
	return res, nil
}

func (f *Facebook) photo(ctx context.Context, page, token, caption, mediaURL string) (*Result, error) {
	var result transfer.GraphIDResponse
	err := f.post(ctx, fmt.Sprintf("%s/%s/photos", f.baseURL, page), map[string]interface{}{
		"url":          mediaURL,
		"caption":      caption,
		"access_token": token,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, NewError(models.ErrorKindUnknown, "no photo ID returned from Facebook")
	}

	externalID := result.PostID
	if externalID == "" {
		externalID = result.ID
	}
	return &Result{ExternalID: externalID, MediaIDs: []string{result.ID}}, nil
}

func (f *Facebook) video(ctx context.Context, page, token, description, mediaURL string) (*Result, error) {
	var result transfer.GraphIDResponse
	err := f.post(ctx, fmt.Sprintf("%s/%s/videos", f.baseURL, page), map[string]interface{}{
		"file_url":     mediaURL,
		"description":  description,
		"access_token": token,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, NewError(models.ErrorKindUnknown, "no video ID returned from Facebook")
	}
	return &Result{ExternalID: result.ID, MediaIDs: []string{result.ID}}, nil
}

// carousel uploads every photo unpublished, then attaches them to a single
// feed entry in the given order. A failed upload stops before the feed call.
func (f *Facebook) carousel(ctx context.Context, page, token, message string, mediaURLs []string) (*Result, error) {
	attached := make([]transfer.GraphAttachedMedia, 0, len(mediaURLs))

	for i, mediaURL := range mediaURLs {
		var result transfer.GraphIDResponse
		err := f.post(ctx, fmt.Sprintf("%s/%s/photos", f.baseURL, page), map[string]interface{}{
			"url":          mediaURL,
			"published":    false,
			"access_token": token,
		}, &result)
		if err != nil {
			return nil, fmt.Errorf("carousel item %d: %w", i+1, err)
		}
		if result.ID == "" {
			return nil, NewError(models.ErrorKindUnknown, "no photo ID returned for carousel item %d", i+1)
		}
		attached = append(attached, transfer.GraphAttachedMedia{MediaFbID: result.ID})
	}

	return f.feed(ctx, page, token, message, attached)
}

// Revoke removes the app's permissions for the user behind the token.
func (f *Facebook) Revoke(ctx context.Context, creds Credentials) error {
	u := fmt.Sprintf("%s/me/permissions?access_token=%s", f.baseURL, url.QueryEscape(creds.AccessToken))
	_, err := sendJSON(ctx, f.client, http.MethodDelete, u, nil, nil, classifyGraph, nil)
	return err
}

func (f *Facebook) post(ctx context.Context, url string, payload map[string]interface{}, out interface{}) error {
	_, err := sendJSON(ctx, f.client, http.MethodPost, url, payload, nil, classifyGraph, out)
	return err
}

// pollText renders poll options under the text, for platforms without native polls.
func pollText(text string, options []string) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n")
	for i, o := range options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, o)
	}
	return b.String()
}
