package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type linkedInServer struct {
	*httptest.Server

	mu      sync.Mutex
	posts   []transfer.LinkedInPost
	uploads map[string][]byte
	images  int
	auth    []string
}

func newLinkedInServer(t *testing.T) *linkedInServer {
	ls := &linkedInServer{uploads: map[string][]byte{}}
	mux := http.NewServeMux()

	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprintf(w, "bytes-of-%s", r.URL.Path)
	})
	mux.HandleFunc("/rest/images", func(w http.ResponseWriter, r *http.Request) {
		ls.record(r)
		ls.mu.Lock()
		ls.images++
		n := ls.images
		ls.mu.Unlock()
		fmt.Fprintf(w, `{"value":{"uploadUrl":"%s/upload/%d","image":"urn:li:image:%d"}}`, ls.URL, n, n)
	})
	mux.HandleFunc("/upload/", func(w http.ResponseWriter, r *http.Request) {
		ls.record(r)
		data, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.uploads[r.URL.Path] = data
		ls.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/rest/posts", func(w http.ResponseWriter, r *http.Request) {
		ls.record(r)
		assert.Equal(t, linkedInVersion, r.Header.Get("LinkedIn-Version"))
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))

		var post transfer.LinkedInPost
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&post))
		ls.mu.Lock()
		ls.posts = append(ls.posts, post)
		ls.mu.Unlock()

		w.Header().Set("x-restli-id", "urn:li:share:123")
		w.WriteHeader(http.StatusCreated)
	})

	ls.Server = httptest.NewServer(mux)
	t.Cleanup(ls.Close)
	return ls
}

func (ls *linkedInServer) record(r *http.Request) {
	ls.mu.Lock()
	ls.auth = append(ls.auth, r.Header.Get("Authorization"))
	ls.mu.Unlock()
}

func (ls *linkedInServer) lastPost(t *testing.T) transfer.LinkedInPost {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	require.NotEmpty(t, ls.posts)
	return ls.posts[len(ls.posts)-1]
}

func liRequest(postType, text string, media, poll []string) *PublishRequest {
	return &PublishRequest{
		PostID:      "post-1",
		PostType:    postType,
		Text:        text,
		MediaURLs:   media,
		PollOptions: poll,
		Credentials: Credentials{AccountID: "abc123", AccessToken: "li-token"},
	}
}

func TestLinkedInText(t *testing.T) {
	ls := newLinkedInServer(t)

	res, err := NewLinkedIn(ls.Client(), ls.URL).Publish(context.Background(),
		liRequest(models.PostTypeText, "Launch day (finally) #golang", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:123", res.ExternalID)

	post := ls.lastPost(t)
	assert.Equal(t, "urn:li:person:abc123", post.Author)
	assert.Equal(t, `Launch day \(finally\) {hashtag|\#|golang}`, post.Commentary)
	assert.Equal(t, "PUBLIC", post.Visibility)
	assert.Nil(t, post.Content)
	assert.Equal(t, []string{"Bearer li-token"}, ls.auth)
}

func TestLinkedInImage(t *testing.T) {
	ls := newLinkedInServer(t)

	res, err := NewLinkedIn(ls.Client(), ls.URL).Publish(context.Background(),
		liRequest(models.PostTypeImage, "pic", []string{ls.URL + "/media/a.jpg"}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"urn:li:image:1"}, res.MediaIDs)

	post := ls.lastPost(t)
	require.NotNil(t, post.Content)
	require.NotNil(t, post.Content.Media)
	assert.Equal(t, "urn:li:image:1", post.Content.Media.ID)
	assert.Equal(t, "bytes-of-/media/a.jpg", string(ls.uploads["/upload/1"]))
}

func TestLinkedInCarouselKeepsOrder(t *testing.T) {
	ls := newLinkedInServer(t)

	media := []string{ls.URL + "/media/1.jpg", ls.URL + "/media/2.jpg", ls.URL + "/media/3.jpg"}
	res, err := NewLinkedIn(ls.Client(), ls.URL).Publish(context.Background(), liRequest(models.PostTypeCarousel, "set", media, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"urn:li:image:1", "urn:li:image:2", "urn:li:image:3"}, res.MediaIDs)

	post := ls.lastPost(t)
	require.NotNil(t, post.Content.MultiImage)
	require.Len(t, post.Content.MultiImage.Images, 3)
	for i, img := range post.Content.MultiImage.Images {
		assert.Equal(t, fmt.Sprintf("urn:li:image:%d", i+1), img.ID)
	}
}

func TestLinkedInSingleItemCarousel(t *testing.T) {
	ls := newLinkedInServer(t)

	_, err := NewLinkedIn(ls.Client(), ls.URL).Publish(context.Background(),
		liRequest(models.PostTypeCarousel, "one", []string{ls.URL + "/media/1.jpg"}, nil))
	require.NoError(t, err)

	post := ls.lastPost(t)
	assert.Nil(t, post.Content.MultiImage)
	require.NotNil(t, post.Content.Media)
	assert.Equal(t, "urn:li:image:1", post.Content.Media.ID)
}

func TestLinkedInPoll(t *testing.T) {
	ls := newLinkedInServer(t)

	_, err := NewLinkedIn(ls.Client(), ls.URL).Publish(context.Background(),
		liRequest(models.PostTypePoll, "Which runtime?", nil, []string{"Go", "Rust", "Zig"}))
	require.NoError(t, err)

	post := ls.lastPost(t)
	require.NotNil(t, post.Content.Poll)
	assert.Equal(t, "Which runtime?", post.Content.Poll.Question)
	assert.Equal(t, "THREE_DAYS", post.Content.Poll.Settings.Duration)
	require.Len(t, post.Content.Poll.Options, 3)
	assert.Equal(t, "Zig", post.Content.Poll.Options[2].Text)
}

func TestLinkedInMissingMedia(t *testing.T) {
	ls := newLinkedInServer(t)

	srv404 := httptest.NewServer(http.NotFoundHandler())
	defer srv404.Close()

	_, err := NewLinkedIn(ls.Client(), ls.URL).Publish(context.Background(),
		liRequest(models.PostTypeImage, "pic", []string{srv404.URL + "/gone.jpg"}, nil))
	assert.Equal(t, models.ErrorKindValidation, AsError(err).Kind)
	assert.Empty(t, ls.posts)
}

func TestLinkedInErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		body   string
		kind   models.ErrorKind
		after  time.Duration
	}{
		{name: "unauthorized", status: 401, body: `{"status":401,"code":"EXPIRED_ACCESS_TOKEN","message":"The token used in the request has expired"}`, kind: models.ErrorKindAuthExpired},
		{name: "revoked", status: 403, body: `{"status":403,"code":"REVOKED_ACCESS_TOKEN"}`, kind: models.ErrorKindAuthExpired},
		{name: "throttled", status: 429, header: map[string]string{"Retry-After": "5"}, kind: models.ErrorKindRateLimited, after: 5 * time.Second},
		{name: "bad request", status: 400, body: `{"message":"commentary too long"}`, kind: models.ErrorKindValidation},
		{name: "gateway", status: 504, kind: models.ErrorKindTransientNetwork},
		{name: "forbidden", status: 403, body: `{"message":"no"}`, kind: models.ErrorKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewLinkedIn(srv.Client(), srv.URL).Publish(context.Background(), liRequest(models.PostTypeText, "hi", nil, nil))
			perr := AsError(err)
			require.NotNil(t, perr)
			assert.Equal(t, tt.kind, perr.Kind)
			assert.Equal(t, tt.after, perr.RetryAfter)
			assert.Equal(t, tt.status, perr.StatusCode)
		})
	}
}

func TestLittleText(t *testing.T) {
	tests := map[string]string{
		"plain text":            "plain text",
		"email me@example.com":  `email me\@example.com`,
		"[link](x)":             `\[link\]\(x\)`,
		"#go and #cloud_native": `{hashtag|\#|go} and {hashtag|\#|cloud\_native}`,
		"a_b*c~d":               `a\_b\*c\~d`,
		"# lonely":              `\# lonely`,
	}
	for in, want := range tests {
		assert.Equal(t, want, littleText(in), in)
	}
}

func TestAuthorURN(t *testing.T) {
	assert.Equal(t, "urn:li:person:abc", authorURN("abc"))
	assert.Equal(t, "urn:li:organization:42", authorURN("urn:li:organization:42"))
}
