package models

import (
	"time"
)

type SocialAccount struct {
	ID                string     `db:"id" json:"id"`
	UserID            string     `db:"user_id" json:"user_id"`
	Platform          string     `db:"platform" json:"platform"`
	AccountID         string     `db:"account_id" json:"account_id"`
	AccountName       string     `db:"account_name" json:"account_name"`
	AccessToken       string     `db:"access_token" json:"-"`
	PageAccessToken   string     `db:"page_access_token" json:"-"`
	TokenExpiresAt    *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty"`
	RequiresReconnect bool       `db:"requires_reconnect" json:"requires_reconnect"`
	LastError         *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PlatformFacebook  = "facebook"
	PlatformLinkedIn  = "linkedin"
	PlatformInstagram = "instagram"
)

func ValidPlatform(platform string) bool {
	switch platform {
	case PlatformFacebook, PlatformLinkedIn, PlatformInstagram:
		return true
	}
	return false
}
