package telegram

import (
	"time"
)

// OriginKind tells what kind of peer a forwarded message came from.
type OriginKind int

// OriginKind values. OriginNone means the message is not a forward.
const (
	OriginNone   OriginKind = iota
	OriginHidden            // forward header without a peer (privacy settings)
	OriginUser
	OriginChat
	OriginChannel
)

func (k OriginKind) String() string {
	switch k {
	case OriginHidden:
		return "hidden"
	case OriginUser:
		return "user"
	case OriginChat:
		return "chat"
	case OriginChannel:
		return "channel"
	default:
		return "none"
	}
}

// ForwardOrigin is the source of a forwarded message.
type ForwardOrigin struct {
	Kind OriginKind
	ID   int64 // user, chat or channel id depending on Kind
}

// ChannelID returns the origin channel id, or false if the origin is not a channel.
func (o ForwardOrigin) ChannelID() (int64, bool) {
	if o.Kind != OriginChannel || o.ID == 0 {
		return 0, false
	}
	return o.ID, true
}

// Message represents a parsed telegram message
type Message struct {
	ID        int           // message id (unique within channel)
	ChannelID int64         // channel id the message was read from
	Text      string        // message text content
	Date      time.Time     // message creation timestamp
	Forward   ForwardOrigin // forward origin, Kind == OriginNone for regular posts
	Service   bool          // service message (pin, join, ...)
}

// Channel represents a telegram channel info
type Channel struct {
	ID         int64  // channel id
	AccessHash int64  // access hash for api calls
	Username   string // channel username (without @), empty for private channels
	Title      string // channel title
}

// FullChannel carries the fields of channels.getFullChannel we use.
type FullChannel struct {
	Channel           *Channel
	ParticipantsCount int
}
