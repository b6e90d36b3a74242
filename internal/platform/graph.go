package platform

import (
	"encoding/json"
	"net/http"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/transfer"
)

// Graph API error codes, shared by Facebook and Instagram.
const (
	graphCodeUnknown         = 1
	graphCodeService         = 2
	graphCodeAppRateLimit    = 4
	graphCodeUserRateLimit   = 17
	graphCodePageRateLimit   = 32
	graphCodeInvalidParam    = 100
	graphCodeSession         = 102
	graphCodeAccessToken     = 190
	graphCodeUploadFailed    = 324
	graphCodeUnsupportedFile = 352
	graphCodeActionRateLimit = 613
	graphCodeMediaDownload   = 9004
)

var graphAuthSubcodes = map[int]struct{}{
	458: {}, 459: {}, 460: {}, 463: {}, 464: {}, 467: {},
}

func classifyGraph(status int, header http.Header, body []byte) *Error {
	perr := &Error{
		Kind:       models.ErrorKindUnknown,
		Message:    http.StatusText(status),
		StatusCode: status,
		Body:       string(body),
		RetryAfter: retryAfter(header),
	}

	var ge transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		perr.Message = ge.Error.Message
	}
	code, subcode := ge.Error.Code, ge.Error.ErrorSubcode
	_, authSubcode := graphAuthSubcodes[subcode]

	switch {
	case code == graphCodeAccessToken || code == graphCodeSession || authSubcode:
		perr.Kind = models.ErrorKindAuthExpired
	case code == graphCodeAppRateLimit || code == graphCodeUserRateLimit || code == graphCodePageRateLimit ||
		code == graphCodeActionRateLimit || (code >= 80001 && code <= 80014):
		perr.Kind = models.ErrorKindRateLimited
	case ge.Error.IsTransient || code == graphCodeUnknown || code == graphCodeService:
		perr.Kind = models.ErrorKindTransientNetwork
	case code == graphCodeInvalidParam || code == graphCodeUploadFailed || code == graphCodeUnsupportedFile || code == graphCodeMediaDownload:
		perr.Kind = models.ErrorKindValidation
	case status == http.StatusTooManyRequests:
		perr.Kind = models.ErrorKindRateLimited
	case status == http.StatusUnauthorized:
		perr.Kind = models.ErrorKindAuthExpired
	case status >= http.StatusInternalServerError:
		perr.Kind = models.ErrorKindTransientNetwork
	}
	return perr
}
