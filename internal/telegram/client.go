// Package telegram provides the Telegram MTProto client wrapper used to scan
// channel history through pre-authenticated user sessions.
package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/repost-tracer/internal/logger"
)

// AuthChecker reports whether the connected session is logged in.
type AuthChecker func(ctx context.Context) (bool, error)

// Client provides high-level telegram operations on top of one connected session.
// It is only valid inside the callback passed to Connector.Run.
type Client struct {
	api         *tg.Client
	authorized  AuthChecker
	rateLimiter *RateLimiter
	log         *logger.Logger

	// channels seen so far, keyed by id; needed for access hashes
	peersMu sync.RWMutex
	peers   map[int64]Channel
}

// NewClient wraps a raw API client.
func NewClient(api *tg.Client, authorized AuthChecker, limiter *RateLimiter, log *logger.Logger) *Client {
	if limiter == nil {
		limiter = DefaultRateLimiter()
	}
	if log == nil {
		log = logger.Get()
	}
	return &Client{
		api:         api,
		authorized:  authorized,
		rateLimiter: limiter,
		log:         log,
		peers:       make(map[int64]Channel),
	}
}

// RememberChannels seeds the access hash cache.
func (c *Client) RememberChannels(channels ...Channel) {
	c.peersMu.Lock()
	defer c.peersMu.Unlock()
	for _, ch := range channels {
		if ch.ID == 0 {
			continue
		}
		prev, ok := c.peers[ch.ID]
		if ok && ch.AccessHash == 0 {
			ch.AccessHash = prev.AccessHash
		}
		c.peers[ch.ID] = ch
	}
}

// KnownChannel returns the cached channel for id.
func (c *Client) KnownChannel(id int64) (Channel, bool) {
	c.peersMu.RLock()
	defer c.peersMu.RUnlock()
	ch, ok := c.peers[id]
	return ch, ok
}

// IsAuthorized checks whether the session is logged in.
func (c *Client) IsAuthorized(ctx context.Context) (bool, error) {
	if c.authorized == nil {
		return false, ErrUnauthorized
	}
	ok, err := c.authorized(ctx)
	if err != nil {
		return false, classifyError(err)
	}
	return ok, nil
}

// wait applies the session rate limit.
func (c *Client) wait(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.log.Error().Err(err).Msg("telegram: rate limiter wait failed")
		return err
	}
	return nil
}

// observe records FLOOD_WAIT penalties and maps rpc errors.
func (c *Client) observe(err error, method string) error {
	if wait := c.rateLimiter.Observe(err); wait > 0 {
		c.log.Warn().Dur("wait", wait).Str("method", method).Msg("telegram: FLOOD_WAIT detected, updating rate limiter")
	}
	return classifyError(err)
}

// ResolveChannel resolves channel username to Channel info
// username can be with or without @ prefix
func (c *Client) ResolveChannel(ctx context.Context, username string) (*Channel, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.log.Debug().Str("username", username).Msg("telegram: resolving channel username")
	resolved, err := c.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: trimAt(username),
	})
	if err != nil {
		return nil, fmt.Errorf("resolve username %s: %w", username, c.observe(err, "contacts.resolveUsername"))
	}

	c.rememberChats(resolved.Chats)

	peer, ok := resolved.Peer.(*tg.PeerChannel)
	if !ok {
		if len(resolved.Chats) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, username)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotAChannel, username)
	}

	ch, ok := c.KnownChannel(peer.ChannelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, username)
	}
	return &ch, nil
}

// GetMessages fetches messages from a channel, newest first
// offsetID: start from this message id (0 = newest messages)
// limit: max number of messages to fetch (max 100)
func (c *Client) GetMessages(ctx context.Context, channel *Channel, offsetID int, limit int) ([]Message, error) {
	if limit > 100 {
		limit = 100 // telegram api limit
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.log.Debug().Int64("channel_id", channel.ID).Int("offset_id", offsetID).Int("limit", limit).Msg("telegram: calling MessagesGetHistory API")
	history, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer: &tg.InputPeerChannel{
			ChannelID:  channel.ID,
			AccessHash: channel.AccessHash,
		},
		OffsetID: offsetID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get history: %w", c.observe(err, "messages.getHistory"))
	}

	return c.extractMessages(history, channel), nil
}

// GetChannel looks up a channel by id. The access hash must already be known
// from the session file or an earlier response.
func (c *Client) GetChannel(ctx context.Context, id int64) (*Channel, error) {
	known, ok := c.KnownChannel(id)
	if !ok {
		return nil, fmt.Errorf("%w: channel %d", ErrUnknownPeer, id)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: known.ID, AccessHash: known.AccessHash},
	})
	if err != nil {
		return nil, fmt.Errorf("get channel %d: %w", id, c.observe(err, "channels.getChannels"))
	}

	var chats []tg.ChatClass
	switch r := res.(type) {
	case *tg.MessagesChats:
		chats = r.Chats
	case *tg.MessagesChatsSlice:
		chats = r.Chats
	}
	c.rememberChats(chats)

	for _, chat := range chats {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == id {
			out := channelFromTG(ch)
			if out.AccessHash == 0 {
				out.AccessHash = known.AccessHash
			}
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: channel %d", ErrChannelNotFound, id)
}

// GetFullChannel returns the full info of a channel, including its
// participant count.
func (c *Client) GetFullChannel(ctx context.Context, channel *Channel) (*FullChannel, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	full, err := c.api.ChannelsGetFullChannel(ctx, &tg.InputChannel{
		ChannelID:  channel.ID,
		AccessHash: channel.AccessHash,
	})
	if err != nil {
		return nil, fmt.Errorf("get full channel: %w", c.observe(err, "channels.getFullChannel"))
	}

	chFull, ok := full.FullChat.(*tg.ChannelFull)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected full chat type %T", ErrNotAChannel, full.FullChat)
	}

	// absent count is treated as zero
	count, _ := chFull.GetParticipantsCount()

	return &FullChannel{
		Channel:           channel,
		ParticipantsCount: count,
	}, nil
}

// rememberChats caches channels from any response carrying a chats vector.
func (c *Client) rememberChats(chats []tg.ChatClass) {
	var found []Channel
	for _, chat := range chats {
		switch ch := chat.(type) {
		case *tg.Channel:
			// min constructors carry an access hash that only works in context
			if _, known := c.KnownChannel(ch.ID); ch.Min && known {
				continue
			}
			found = append(found, channelFromTG(ch))
		case *tg.ChannelForbidden:
			found = append(found, Channel{ID: ch.ID, AccessHash: ch.AccessHash, Title: ch.Title})
		}
	}
	if len(found) > 0 {
		c.RememberChannels(found...)
	}
}

// extractMessages converts telegram message response to our Message type
func (c *Client) extractMessages(messagesClass tg.MessagesMessagesClass, channel *Channel) []Message {
	var (
		raw   []tg.MessageClass
		chats []tg.ChatClass
	)

	switch h := messagesClass.(type) {
	case *tg.MessagesChannelMessages:
		raw, chats = h.Messages, h.Chats
	case *tg.MessagesMessagesSlice:
		raw, chats = h.Messages, h.Chats
	case *tg.MessagesMessages:
		raw, chats = h.Messages, h.Chats
	}

	c.rememberChats(chats)

	messages := make([]Message, 0, len(raw))
	for _, msg := range raw {
		if m, ok := parseMessage(msg, channel.ID); ok {
			messages = append(messages, m)
		}
	}
	return messages
}

// parseMessage converts a single telegram message to our Message type
func parseMessage(msg tg.MessageClass, channelID int64) (Message, bool) {
	switch m := msg.(type) {
	case *tg.Message:
		return Message{
			ID:        m.ID,
			ChannelID: channelID,
			Text:      m.Message,
			Date:      time.Unix(int64(m.Date), 0),
			Forward:   forwardOrigin(m),
		}, true
	case *tg.MessageService:
		return Message{
			ID:        m.ID,
			ChannelID: channelID,
			Date:      time.Unix(int64(m.Date), 0),
			Service:   true,
		}, true
	default:
		return Message{}, false
	}
}

// forwardOrigin reads the forward header of a message.
func forwardOrigin(m *tg.Message) ForwardOrigin {
	fwd, ok := m.GetFwdFrom()
	if !ok {
		return ForwardOrigin{}
	}

	from, ok := fwd.GetFromID()
	if !ok {
		return ForwardOrigin{Kind: OriginHidden}
	}

	switch p := from.(type) {
	case *tg.PeerChannel:
		return ForwardOrigin{Kind: OriginChannel, ID: p.ChannelID}
	case *tg.PeerUser:
		return ForwardOrigin{Kind: OriginUser, ID: p.UserID}
	case *tg.PeerChat:
		return ForwardOrigin{Kind: OriginChat, ID: p.ChatID}
	default:
		return ForwardOrigin{Kind: OriginHidden}
	}
}

func channelFromTG(ch *tg.Channel) Channel {
	return Channel{
		ID:         ch.ID,
		AccessHash: ch.AccessHash,
		Username:   ch.Username,
		Title:      ch.Title,
	}
}

func trimAt(username string) string {
	if len(username) > 0 && username[0] == '@' {
		return username[1:]
	}
	return username
}
