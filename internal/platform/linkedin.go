package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"golang.org/x/oauth2"
)

const (
	DefaultLinkedInURL = "https://api.linkedin.com"
	linkedInVersion    = "202405"
	maxPollQuestion    = 140
)

var linkedInHeaders = map[string]string{
	"LinkedIn-Version":          linkedInVersion,
	"X-Restli-Protocol-Version": "2.0.0",
}

// LinkedIn publishes through the LinkedIn REST Posts API.
type LinkedIn struct {
	client  *http.Client
	baseURL string
}

func NewLinkedIn(client *http.Client, baseURL string) *LinkedIn {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultLinkedInURL
	}
	return &LinkedIn{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *LinkedIn) Platform() string {
	return models.PlatformLinkedIn
}

func (l *LinkedIn) Publish(ctx context.Context, req *PublishRequest) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	if req.Credentials.AccessToken == "" {
		return nil, NewError(models.ErrorKindAuthExpired, "no access token for account")
	}

	api := l.apiClient(ctx, req.Credentials.AccessToken)
	author := authorURN(req.Credentials.AccountID)

	post := transfer.LinkedInPost{
		Author:     author,
		Commentary: littleText(req.Text),
		Visibility: "PUBLIC",
		Distribution: transfer.LinkedInDistribution{
			FeedDistribution:               "MAIN_FEED",
			TargetEntities:                 []string{},
			ThirdPartyDistributionChannels: []string{},
		},
		LifecycleState: "PUBLISHED",
	}

	var mediaIDs []string

	switch req.PostType {
	case models.PostTypeText:
	case models.PostTypePoll:
		options := make([]transfer.LinkedInPollOption, 0, len(req.PollOptions))
		for _, o := range req.PollOptions {
			options = append(options, transfer.LinkedInPollOption{Text: o})
		}
		post.Content = &transfer.LinkedInContent{Poll: &transfer.LinkedInPoll{
			Question: truncate(req.Text, maxPollQuestion),
			Options:  options,
			Settings: transfer.LinkedInPollSettings{Duration: "THREE_DAYS"},
		}}
	case models.PostTypeImage:
		urn, err := l.uploadImage(ctx, api, author, req.MediaURLs[0])
		if err != nil {
			return nil, err
		}
		mediaIDs = []string{urn}
		post.Content = &transfer.LinkedInContent{Media: &transfer.LinkedInMedia{ID: urn}}
	case models.PostTypeVideo:
		urn, err := l.uploadVideo(ctx, api, author, req.MediaURLs[0])
		if err != nil {
			return nil, err
		}
		mediaIDs = []string{urn}
		post.Content = &transfer.LinkedInContent{Media: &transfer.LinkedInMedia{ID: urn}}
	case models.PostTypeCarousel:
		for i, mediaURL := range req.MediaURLs {
			urn, err := l.uploadImage(ctx, api, author, mediaURL)
			if err != nil {
				return nil, fmt.Errorf("carousel item %d: %w", i+1, err)
			}
			mediaIDs = append(mediaIDs, urn)
		}
		if len(mediaIDs) == 1 {
			post.Content = &transfer.LinkedInContent{Media: &transfer.LinkedInMedia{ID: mediaIDs[0]}}
		} else {
			images := make([]transfer.LinkedInMedia, 0, len(mediaIDs))
			for _, urn := range mediaIDs {
				images = append(images, transfer.LinkedInMedia{ID: urn})
			}
			post.Content = &transfer.LinkedInContent{MultiImage: &transfer.LinkedInMultiImage{Images: images}}
		}
	default:
		return nil, NewError(models.ErrorKindValidation, "unsupported post type %q", req.PostType)
	}

	header, err := sendJSON(ctx, api, http.MethodPost, l.baseURL+"/rest/posts", post, linkedInHeaders, classifyLinkedIn, nil)
	if err != nil {
		return nil, err
	}

	postURN := header.Get("x-restli-id")
	if postURN == "" {
		return nil, NewError(models.ErrorKindUnknown, "no post URN returned from LinkedIn")
	}
	return &Result{ExternalID: postURN, MediaIDs: mediaIDs}, nil
}

// apiClient attaches the bearer token to every request while keeping the
// configured transport underneath.
func (l *LinkedIn) apiClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, l.client)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

func (l *LinkedIn) uploadImage(ctx context.Context, api *http.Client, owner, mediaURL string) (string, error) {
	var upload transfer.LinkedInImageUpload
	_, err := sendJSON(ctx, api, http.MethodPost, l.baseURL+"/rest/images?action=initializeUpload",
		transfer.LinkedInInitializeUpload{InitializeUploadRequest: transfer.LinkedInUploadRequest{Owner: owner}},
		linkedInHeaders, classifyLinkedIn, &upload)
	if err != nil {
		return "", err
	}
	if upload.Value.UploadURL == "" || upload.Value.Image == "" {
		return "", NewError(models.ErrorKindUnknown, "incomplete image upload registration from LinkedIn")
	}

	data, contentType, err := fetchMedia(ctx, l.client, mediaURL)
	if err != nil {
		return "", err
	}
	if _, err := l.putBinary(ctx, api, upload.Value.UploadURL, data, contentType); err != nil {
		return "", err
	}
	return upload.Value.Image, nil
}

func (l *LinkedIn) uploadVideo(ctx context.Context, api *http.Client, owner, mediaURL string) (string, error) {
	data, contentType, err := fetchMedia(ctx, l.client, mediaURL)
	if err != nil {
		return "", err
	}

	no := false
	var upload transfer.LinkedInVideoUpload
	_, err = sendJSON(ctx, api, http.MethodPost, l.baseURL+"/rest/videos?action=initializeUpload",
		transfer.LinkedInInitializeUpload{InitializeUploadRequest: transfer.LinkedInUploadRequest{
			Owner:           owner,
			FileSizeBytes:   int64(len(data)),
			UploadCaptions:  &no,
			UploadThumbnail: &no,
		}},
		linkedInHeaders, classifyLinkedIn, &upload)
	if err != nil {
		return "", err
	}
	if upload.Value.Video == "" || len(upload.Value.UploadInstructions) == 0 {
		return "", NewError(models.ErrorKindUnknown, "incomplete video upload registration from LinkedIn")
	}

	partIDs := make([]string, 0, len(upload.Value.UploadInstructions))
	for _, in := range upload.Value.UploadInstructions {
		if in.FirstByte < 0 || in.LastByte >= int64(len(data)) || in.FirstByte > in.LastByte {
			return "", NewError(models.ErrorKindUnknown, "invalid upload range %d-%d from LinkedIn", in.FirstByte, in.LastByte)
		}
		header, err := l.putBinary(ctx, api, in.UploadURL, data[in.FirstByte:in.LastByte+1], contentType)
		if err != nil {
			return "", err
		}
		partIDs = append(partIDs, header.Get("ETag"))
	}

	var finalize transfer.LinkedInFinalizeUpload
	finalize.FinalizeUploadRequest.Video = upload.Value.Video
	finalize.FinalizeUploadRequest.UploadToken = upload.Value.UploadToken
	finalize.FinalizeUploadRequest.UploadedPartIDs = partIDs

	if _, err := sendJSON(ctx, api, http.MethodPost, l.baseURL+"/rest/videos?action=finalizeUpload", finalize, linkedInHeaders, classifyLinkedIn, nil); err != nil {
		return "", err
	}
	return upload.Value.Video, nil
}

func (l *LinkedIn) putBinary(ctx context.Context, api *http.Client, uploadURL string, data []byte, contentType string) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, NewError(models.ErrorKindUnknown, "error creating upload request: %v", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	_, header, err := do(api, req, classifyLinkedIn)
	return header, err
}

func classifyLinkedIn(status int, header http.Header, body []byte) *Error {
	perr := &Error{
		Kind:       models.ErrorKindUnknown,
		Message:    http.StatusText(status),
		StatusCode: status,
		Body:       string(body),
		RetryAfter: retryAfter(header),
	}

	var le transfer.LinkedInErrorResponse
	if err := json.Unmarshal(body, &le); err == nil && le.Message != "" {
		perr.Message = le.Message
	}

	switch {
	case status == http.StatusUnauthorized || le.Code == "EXPIRED_ACCESS_TOKEN" || le.Code == "REVOKED_ACCESS_TOKEN":
		perr.Kind = models.ErrorKindAuthExpired
	case status == http.StatusTooManyRequests:
		perr.Kind = models.ErrorKindRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		perr.Kind = models.ErrorKindValidation
	case status >= http.StatusInternalServerError:
		perr.Kind = models.ErrorKindTransientNetwork
	}
	return perr
}

func authorURN(accountID string) string {
	if strings.HasPrefix(accountID, "urn:li:") {
		return accountID
	}
	return "urn:li:person:" + accountID
}

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

const littleTextReserved = `\|{}@[]()<>#*_~`

// littleText converts plain text to LinkedIn's commentary format: reserved
// characters are escaped and #tags become hashtag templates.
func littleText(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range hashtagPattern.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(escapeReserved(s[last:m[0]]))
		b.WriteString(`{hashtag|\#|`)
		b.WriteString(escapeReserved(s[m[2]:m[3]]))
		b.WriteString("}")
		last = m[1]
	}
	b.WriteString(escapeReserved(s[last:]))
	return b.String()
}

func escapeReserved(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(littleTextReserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
