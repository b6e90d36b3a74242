package transfer

import "time"

type PostCreation struct {
	SocialAccountID string     `json:"social_account_id"`
	PostType        string     `json:"post_type"`
	Content         string     `json:"content"`
	MediaURLs       []string   `json:"media_urls"`
	PollOptions     []string   `json:"poll_options"`
	Hashtags        []string   `json:"hashtags"`
	ScheduledFor    *time.Time `json:"scheduled_for"`
	Timezone        string     `json:"timezone"`
	Draft           bool       `json:"draft"`
}

type PostUpdate struct {
	Content     *string   `json:"content"`
	MediaURLs   *[]string `json:"media_urls"`
	PollOptions *[]string `json:"poll_options"`
	Hashtags    *[]string `json:"hashtags"`
	Timezone    *string   `json:"timezone"`
}

type Reschedule struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

type ConflictCheck struct {
	ScheduledFor    time.Time `json:"scheduled_for"`
	SocialAccountID string    `json:"social_account_id"`
	ExcludePostID   string    `json:"exclude_post_id"`
}

type RecurringPostCreation struct {
	SocialAccountID     string     `json:"social_account_id"`
	PostType            string     `json:"post_type"`
	Content             string     `json:"content"`
	MediaURLs           []string   `json:"media_urls"`
	PollOptions         []string   `json:"poll_options"`
	Hashtags            []string   `json:"hashtags"`
	Timezone            string     `json:"timezone"`
	Frequency           string     `json:"frequency"`
	IntervalValue       int        `json:"interval_value"`
	CustomIntervalHours int        `json:"custom_interval_hours"`
	StartDate           *time.Time `json:"start_date"`
	EndDate             *time.Time `json:"end_date"`
}

// DispatchRequest is the body of the publish endpoint.
type DispatchRequest struct {
	PostID string `json:"postId"`
}

// DispatchResponse is what the publish endpoint answers with, success or not.
type DispatchResponse struct {
	Success bool   `json:"success,omitempty"`
	PostID  string `json:"postId,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}
