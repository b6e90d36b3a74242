package service

import (
	"time"
)

func GetExpiresAt(now time.Time, expiresIn int64) time.Time {
	return now.Add(time.Duration(expiresIn) * time.Second).UTC()
}
