package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ExcerptLimit is the maximum number of characters kept from a message body.
const ExcerptLimit = 200

// ExcerptMarker is appended to truncated excerpts.
const ExcerptMarker = "..."

// TimestampLayout is used whenever a record timestamp is rendered as text.
const TimestampLayout = "2006-01-02 15:04:05"

// Link placeholders for channels without a public username.
const (
	UnknownChannelTitle = "Unknown channel"
	PublicLinkPrefix    = "https://t.me/"
)

// RepostRecord is one observed forward of a channel post.
type RepostRecord struct {
	OriginalChannelTitle string    `json:"original_channel_title" db:"original_channel_title"`
	OriginalChannelLink  string    `json:"original_channel_link" db:"original_channel_link"`
	MessageExcerpt       string    `json:"message_excerpt" db:"message_excerpt"`
	MessageTimestamp     time.Time `json:"message_timestamp" db:"message_timestamp"`
}

// Key identifies a record by all four fields. Timestamps are compared at
// second precision, which is what telegram reports.
func (r RepostRecord) Key() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%d",
		r.OriginalChannelTitle, r.OriginalChannelLink, r.MessageExcerpt, r.MessageTimestamp.Unix())
}

// Row returns the record in export column order.
func (r RepostRecord) Row() []string {
	return []string{
		r.OriginalChannelTitle,
		r.OriginalChannelLink,
		r.MessageExcerpt,
		r.MessageTimestamp.UTC().Format(TimestampLayout),
	}
}

// ExportHeader names the columns of Row.
var ExportHeader = []string{
	"OriginalChannelTitle",
	"OriginalChannelLink",
	"MessageExcerpt",
	"MessageTimestamp",
}

// Excerpt truncates text to ExcerptLimit characters, appending ExcerptMarker
// when something was cut.
func Excerpt(text string) string {
	if utf8.RuneCountInString(text) <= ExcerptLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:ExcerptLimit]) + ExcerptMarker
}

// PublicLink builds the t.me link for a public username.
func PublicLink(username string) string {
	return PublicLinkPrefix + username
}

// PrivateLink is the placeholder for a resolved channel without a username.
func PrivateLink(channelID int64) string {
	return fmt.Sprintf("[Private Channel | ID: %d]", channelID)
}

// UnknownLink is the placeholder for a channel whose lookup failed.
func UnknownLink(channelID int64) string {
	return fmt.Sprintf("[ID: %d]", channelID)
}

// ChannelCount is one line of the popularity ranking.
type ChannelCount struct {
	Title   string `json:"title"`
	Reposts int    `json:"reposts"`
}
