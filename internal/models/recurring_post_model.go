package models

import "time"

type RecurringPost struct {
	ID                  string     `db:"id" json:"id"`
	UserID              string     `db:"user_id" json:"user_id"`
	SocialAccountID     string     `db:"social_account_id" json:"social_account_id"`
	PostType            string     `db:"post_type" json:"post_type"`
	Content             string     `db:"content" json:"content"`
	MediaURLs           []string   `db:"image_urls" json:"media_urls"`
	PollOptions         []string   `db:"poll_options" json:"poll_options,omitempty"`
	Hashtags            []string   `db:"hashtags" json:"hashtags,omitempty"`
	Timezone            string     `db:"timezone" json:"timezone"`
	Frequency           string     `db:"frequency" json:"frequency"`
	IntervalValue       int        `db:"interval_value" json:"interval_value"`
	CustomIntervalHours int        `db:"custom_interval_hours" json:"custom_interval_hours,omitempty"`
	StartDate           *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate             *time.Time `db:"end_date" json:"end_date,omitempty"`
	LastPostedAt        *time.Time `db:"last_posted_at" json:"last_posted_at,omitempty"`
	Status              string     `db:"status" json:"status"` // active, paused, completed
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyCustom  = "custom"
)

const (
	RecurringStatusActive    = "active"
	RecurringStatusPaused    = "paused"
	RecurringStatusCompleted = "completed"
)

// Occurrence builds the concrete post a rule spawns at the given instant.
// Slices are copied so the rule's own content is never shared.
func (r *RecurringPost) Occurrence(id string, at time.Time) *Post {
	ruleID := r.ID
	return &Post{
		ID:              id,
		UserID:          r.UserID,
		SocialAccountID: r.SocialAccountID,
		RecurringPostID: &ruleID,
		PostType:        r.PostType,
		Content:         r.Content,
		MediaURLs:       append([]string(nil), r.MediaURLs...),
		PollOptions:     append([]string(nil), r.PollOptions...),
		Hashtags:        append([]string(nil), r.Hashtags...),
		ScheduledFor:    at.UTC(),
		Timezone:        r.Timezone,
		Status:          PostStatusScheduled,
	}
}
