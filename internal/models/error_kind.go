package models

// ErrorKind classifies why a publish attempt failed.
type ErrorKind string

const (
	ErrorKindValidation       ErrorKind = "VALIDATION"
	ErrorKindTokenExpired     ErrorKind = "TOKEN_EXPIRED"
	ErrorKindAuthExpired      ErrorKind = "AUTH_EXPIRED"
	ErrorKindRateLimited      ErrorKind = "RATE_LIMITED"
	ErrorKindTransientNetwork ErrorKind = "TRANSIENT_NETWORK"
	ErrorKindUnknown          ErrorKind = "UNKNOWN"
)

// Retryable reports whether the dispatcher retries this kind automatically.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindRateLimited || k == ErrorKindTransientNetwork
}
