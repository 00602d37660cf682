package model // import "streamlance.app/internal/model"

import "time"

// SentNotification records that a posting was delivered to a user. Rows are
// never updated.
type SentNotification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	PostingID int64     `json:"posting_id" db:"posting_id"`
	SentAt    time.Time `json:"sent_at" db:"sent_at"`
}
