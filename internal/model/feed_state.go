package model // import "streamlance.app/internal/model"

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// FeedState keeps caching validators of a feed between ingest runs.
type FeedState struct {
	FeedURL            string    `db:"feed_url"`
	EtagHeader         string    `db:"etag_header"`
	LastModifiedHeader string    `db:"last_modified_header"`
	Size               int64     `db:"size"`
	Hash               int64     `db:"hash"`
	CheckedAt          time.Time `db:"checked_at"`
	ParsingErrorCount  int       `db:"parsing_error_count"`
	ParsingErrorMsg    string    `db:"parsing_error_msg"`
}

func NewFeedState(feedURL string) *FeedState {
	return &FeedState{FeedURL: feedURL}
}

func (self *FeedState) CheckedNow() { self.CheckedAt = time.Now() }

// ContentChanged remembers size and hash of body and returns true if any of
// them differs from the previous values.
func (self *FeedState) ContentChanged(body []byte) bool {
	oldSize, oldHash := self.Size, self.Hash
	self.Size, self.Hash = int64(len(body)), int64(xxhash.Sum64(body))
	return self.Size != oldSize || self.Hash != oldHash
}

// WithError increments the error counter and keeps the last error message.
func (self *FeedState) WithError(msg string) {
	self.ParsingErrorCount++
	self.ParsingErrorMsg = msg
}

// ResetErrorCounter clears the error counter and the last error message.
func (self *FeedState) ResetErrorCounter() {
	self.ParsingErrorCount = 0
	self.ParsingErrorMsg = ""
}
