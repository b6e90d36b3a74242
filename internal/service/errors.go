package service

import "errors"

var (
	ErrPostNotFound       = errors.New("post not found")
	ErrPostLocked         = errors.New("post can no longer be edited")
	ErrScheduleConflict   = errors.New("another post is scheduled too close to this time")
	ErrAccountNotFound    = errors.New("social account not found")
	ErrRecurringNotFound  = errors.New("recurring post not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
	ErrStorageUnavailable = errors.New("media storage is not configured")
)
