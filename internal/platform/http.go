package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
)

const maxResponseBody = 1 << 20

type classifier func(status int, header http.Header, body []byte) *Error

// do sends req and returns the body of a 2xx response. Any other outcome is an *Error.
func do(client *http.Client, req *http.Request, classify classifier) ([]byte, http.Header, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.Header, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.Header, classify(resp.StatusCode, resp.Header, body)
	}
	return body, resp.Header, nil
}

// sendJSON marshals payload, sends it and decodes a 2xx body into out when out is not nil.
func sendJSON(ctx context.Context, client *http.Client, method, url string, payload any, headers map[string]string, classify classifier, out any) (http.Header, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, NewError(models.ErrorKindValidation, "error marshalling payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, NewError(models.ErrorKindValidation, "error creating request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	respBody, header, err := do(client, req, classify)
	if err != nil {
		return header, err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return header, &Error{
				Kind:    models.ErrorKindUnknown,
				Message: fmt.Sprintf("error parsing response: %v", err),
				Body:    string(respBody),
			}
		}
	}
	return header, nil
}

// fetchMedia downloads a media file from the blob store.
func fetchMedia(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", NewError(models.ErrorKindValidation, "invalid media url %q", url)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", &Error{Kind: models.ErrorKindRateLimited, Message: "media host is rate limiting", StatusCode: resp.StatusCode, RetryAfter: retryAfter(resp.Header)}
	case resp.StatusCode >= 500:
		return nil, "", &Error{Kind: models.ErrorKindTransientNetwork, Message: "media host error", StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, "", &Error{Kind: models.ErrorKindValidation, Message: fmt.Sprintf("media url %q is not reachable", url), StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", classifyTransport(err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// retryAfter reads a Retry-After header given either in seconds or as an HTTP date.
func retryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
