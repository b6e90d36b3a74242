package models

import "time"

type Post struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	SocialAccountID string     `db:"social_account_id" json:"social_account_id"`
	RecurringPostID *string    `db:"recurring_post_id" json:"recurring_post_id,omitempty"`
	PostType        string     `db:"post_type" json:"post_type"`
	Content         string     `db:"content" json:"content"`
	MediaURLs       []string   `db:"image_urls" json:"media_urls"`
	PollOptions     []string   `db:"poll_options" json:"poll_options,omitempty"`
	Hashtags        []string   `db:"hashtags" json:"hashtags,omitempty"`
	ScheduledFor    time.Time  `db:"scheduled_for" json:"scheduled_for"`
	Timezone        string     `db:"timezone" json:"timezone"`
	Status          string     `db:"status" json:"status"` // draft, scheduled, pending, published, failed
	ExternalPostID  string     `db:"external_post_id" json:"external_post_id,omitempty"`
	LastErrorKind   string     `db:"last_error_kind" json:"last_error_kind,omitempty"`
	LastError       string     `db:"last_error" json:"last_error,omitempty"`
	PublishedAt     *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPending   = "pending"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	PostTypeText     = "text"
	PostTypeImage    = "image"
	PostTypeVideo    = "video"
	PostTypeCarousel = "carousel"
	PostTypePoll     = "poll"
)

// Editable reports whether the post content may still be changed.
func (p *Post) Editable() bool {
	return p.Status != PostStatusPublished && p.Status != PostStatusPending
}
