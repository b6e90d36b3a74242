package models

import "time"

type PostingHistory struct {
	ID           int64     `db:"id" json:"id"`
	PostID       string    `db:"post_id" json:"post_id"`
	AccountID    string    `db:"account_id" json:"account_id"`
	Attempt      int       `db:"attempt" json:"attempt"`
	ErrorKind    string    `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
