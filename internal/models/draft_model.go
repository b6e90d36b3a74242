package models

import "time"

// Draft is the composer's in-progress post. One per user.
type Draft struct {
	UserID          string     `json:"user_id"`
	SocialAccountID string     `json:"social_account_id,omitempty"`
	PostType        string     `json:"post_type,omitempty"`
	Content         string     `json:"content"`
	MediaURLs       []string   `json:"media_urls,omitempty"`
	PollOptions     []string   `json:"poll_options,omitempty"`
	Hashtags        []string   `json:"hashtags,omitempty"`
	ScheduledFor    *time.Time `json:"scheduled_for,omitempty"`
	Timezone        string     `json:"timezone,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
